// Copyright 2024 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sourcecache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

// IsDirty reports whether source needs recompiling, applying the dirty
// rules in order: missing object file, missing cache entry, source mtime
// differing from the cached mtime, the target's compile-argv template hash
// changed since last build, any header the source depends on (per its .d
// fragment) has advanced past the object's mtime, or the object file is
// older than the source itself. cmdHash is the current HashArgvTemplate
// result for the target; pass "" to skip rule 4 (e.g. non-source targets).
func IsDirty(c *Cache, source, objectPath string, headers []string, cmdHash string) (bool, error) {
	objInfo, err := os.Stat(objectPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	entry, ok := c.Get(source)
	if !ok {
		return true, nil
	}

	srcInfo, err := os.Stat(source)
	if err != nil {
		return false, err
	}
	if srcInfo.ModTime().UnixNano() != entry.MTime {
		return true, nil
	}

	if cmdHash != "" && entry.CmdHash != cmdHash {
		return true, nil
	}

	for _, h := range headers {
		hInfo, err := os.Stat(h)
		if err != nil {
			// A header that's gone missing (moved/renamed) forces a
			// rebuild so the compiler re-discovers its real dependency
			// list instead of silently reusing a stale object.
			return true, nil
		}
		if hInfo.ModTime().After(objInfo.ModTime()) {
			return true, nil
		}
	}

	if srcInfo.ModTime().After(objInfo.ModTime()) {
		return true, nil
	}

	return false, nil
}

// HashArgvTemplate hashes a target's compile-argv template: the argv a
// source in this target would be compiled with, excluding the per-file
// source/object/depfile paths, so the hash changes only when a flag that
// applies to every source in the target changes.
func HashArgvTemplate(args []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(args, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
