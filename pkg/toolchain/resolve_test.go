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

package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFamilyMSVCStyle(t *testing.T) {
	assert.True(t, FamilyMSVC.MSVCStyle())
	assert.True(t, FamilyVisualStudioLLVM.MSVCStyle())
	assert.False(t, FamilyGNU.MSVCStyle())
	assert.False(t, FamilyLLVM.MSVCStyle())
	assert.False(t, FamilyEmscripten.MSVCStyle())
}

func TestFamilyByName(t *testing.T) {
	tests := map[string]Family{
		"gcc":        FamilyGNU,
		"clang":      FamilyLLVM,
		"msvc":       FamilyMSVC,
		"mingw-llvm": FamilyMinGWLLVM,
		"clang-cl":   FamilyVisualStudioLLVM,
	}
	for name, want := range tests {
		fam, ok := familyByName(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, fam)
	}

	_, ok := familyByName("nonexistent")
	assert.False(t, ok)
}

func TestCandidatesForLinux(t *testing.T) {
	cands := candidatesFor("linux")
	assert.Len(t, cands, 2)
	assert.Equal(t, FamilyLLVM, cands[0].family)
	assert.Equal(t, FamilyGNU, cands[1].family)
}

func TestCandidatesForDarwin(t *testing.T) {
	cands := candidatesFor("darwin")
	assert.Len(t, cands, 1)
	assert.Equal(t, FamilyAppleLLVM, cands[0].family)
}
