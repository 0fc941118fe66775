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
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ParseGNUDepFile parses a GCC/Clang-style Makefile ".d" fragment
// ("object: source header1 \\\n  header2 ...") and returns every
// prerequisite it lists, the source file included; only the object target
// before the ':' is dropped.
func ParseGNUDepFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading dependency file %q: %w", path, err)
	}

	joined := strings.ReplaceAll(string(data), "\\\n", " ")
	_, rhs, found := strings.Cut(joined, ":")
	if !found {
		return nil, fmt.Errorf("dependency file %q: missing ':' separator", path)
	}

	var headers []string
	for _, tok := range strings.Fields(rhs) {
		headers = append(headers, tok)
	}
	return headers, nil
}

// msvcDepFragment mirrors the shape of MSVC's /sourceDependencies JSON
// dependency fragment.
type msvcDepFragment struct {
	Version string `json:"Version"`
	Data    struct {
		Source       string   `json:"Source"`
		Includes     []string `json:"Includes"`
	} `json:"Data"`
}

// ParseMSVCDepFile parses an MSVC "/sourceDependencies" JSON fragment and
// returns the headers it lists.
func ParseMSVCDepFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading dependency file %q: %w", path, err)
	}

	var frag msvcDepFragment
	if err := json.Unmarshal(data, &frag); err != nil {
		return nil, fmt.Errorf("parsing MSVC dependency fragment %q: %w", path, err)
	}
	return frag.Data.Includes, nil
}
