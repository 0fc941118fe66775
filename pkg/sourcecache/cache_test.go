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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.txt")

	c, err := Load(path)
	require.NoError(t, err)
	c.Update(Entry{Source: "src/a.cpp", ObjectPath: "obj/a.o", MTime: 123})
	require.NoError(t, c.Save())

	c2, err := Load(path)
	require.NoError(t, err)
	e, ok := c2.Get("src/a.cpp")
	require.True(t, ok)
	assert.Equal(t, int64(123), e.MTime)
	assert.Equal(t, "obj/a.o", e.ObjectPath)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	_, ok := c.Get("anything")
	assert.False(t, ok)
}

func writeAt(t *testing.T, path string, mt time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mt, mt))
}

func TestIsDirtyMissingObject(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cpp")
	writeAt(t, src, time.Now())

	c, err := Load(filepath.Join(dir, "cache.txt"))
	require.NoError(t, err)

	dirty, err := IsDirty(c, src, filepath.Join(dir, "a.o"), nil, "")
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestIsDirtyUnchangedIsClean(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cpp")
	obj := filepath.Join(dir, "a.o")

	base := time.Now().Add(-time.Hour)
	writeAt(t, src, base)
	writeAt(t, obj, base.Add(time.Minute))

	c, err := Load(filepath.Join(dir, "cache.txt"))
	require.NoError(t, err)

	info, err := os.Stat(src)
	require.NoError(t, err)
	c.Update(Entry{Source: src, ObjectPath: obj, MTime: info.ModTime().UnixNano()})

	dirty, err := IsDirty(c, src, obj, nil, "")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestIsDirtyCommandHashChanged(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cpp")
	obj := filepath.Join(dir, "a.o")

	base := time.Now().Add(-time.Hour)
	writeAt(t, src, base)
	writeAt(t, obj, base.Add(time.Minute))

	c, err := Load(filepath.Join(dir, "cache.txt"))
	require.NoError(t, err)
	info, err := os.Stat(src)
	require.NoError(t, err)
	c.Update(Entry{Source: src, ObjectPath: obj, MTime: info.ModTime().UnixNano(), CmdHash: "old"})

	dirty, err := IsDirty(c, src, obj, nil, "new")
	require.NoError(t, err)
	assert.True(t, dirty)

	dirty, err = IsDirty(c, src, obj, nil, "old")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestIsDirtyHeaderChanged(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cpp")
	obj := filepath.Join(dir, "a.o")
	hdr := filepath.Join(dir, "a.h")

	base := time.Now().Add(-time.Hour)
	writeAt(t, src, base)
	writeAt(t, obj, base.Add(time.Minute))
	writeAt(t, hdr, time.Now())

	c, err := Load(filepath.Join(dir, "cache.txt"))
	require.NoError(t, err)
	info, err := os.Stat(src)
	require.NoError(t, err)
	c.Update(Entry{Source: src, ObjectPath: obj, MTime: info.ModTime().UnixNano()})

	dirty, err := IsDirty(c, src, obj, []string{hdr}, "")
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestParseGNUDepFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.d")
	require.NoError(t, os.WriteFile(path, []byte("a.o: a.cpp a.h \\\n  b.h\n"), 0o644))

	headers, err := ParseGNUDepFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.cpp", "a.h", "b.h"}, headers)
}

func TestParseGNUDepFileMissing(t *testing.T) {
	headers, err := ParseGNUDepFile(filepath.Join(t.TempDir(), "missing.d"))
	require.NoError(t, err)
	assert.Nil(t, headers)
}

func TestParseMSVCDepFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Version":"1.2","Data":{"Source":"a.cpp","Includes":["a.h","b.h"]}}`), 0o644))

	headers, err := ParseMSVCDepFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h", "b.h"}, headers)
}
