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

package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConditionSingle(t *testing.T) {
	c, err := ParseCondition("[platform:linux]")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{"platform:linux": true}))
	assert.False(t, c.Eval(FactEnvironment{"platform:macos": true}))
}

func TestParseConditionAnd(t *testing.T) {
	c, err := ParseCondition("[platform:linux + debug]")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{"platform:linux": true, "debug": true}))
	assert.False(t, c.Eval(FactEnvironment{"platform:linux": true}))
}

func TestParseConditionOr(t *testing.T) {
	c, err := ParseCondition("[platform:linux | platform:macos]")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{"platform:macos": true}))
	assert.False(t, c.Eval(FactEnvironment{"platform:windows": true}))
}

func TestParseConditionNegation(t *testing.T) {
	c, err := ParseCondition("[!platform:windows]")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{"platform:linux": true}))
	assert.False(t, c.Eval(FactEnvironment{"platform:windows": true}))
}

func TestParseConditionMixedOperatorsRejected(t *testing.T) {
	_, err := ParseCondition("[platform:linux + debug | release]")
	assert.Error(t, err)
}

func TestParseConditionEmpty(t *testing.T) {
	c, err := ParseCondition("")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{}))
}

func TestParseConditionWithoutBrackets(t *testing.T) {
	c, err := ParseCondition("debug")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{"debug": true}))
}

func TestParseConditionSetFormMatchesAnyMember(t *testing.T) {
	c, err := ParseCondition("[architecture:{x86_64,arm64}]")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{"architecture:arm64": true}))
	assert.True(t, c.Eval(FactEnvironment{"architecture:x86_64": true}))
	assert.False(t, c.Eval(FactEnvironment{"architecture:riscv64": true}))
}

func TestParseConditionSetFormNegated(t *testing.T) {
	c, err := ParseCondition("[!platform:{windows,macos}]")
	require.NoError(t, err)
	assert.True(t, c.Eval(FactEnvironment{"platform:linux": true}))
	assert.False(t, c.Eval(FactEnvironment{"platform:windows": true}))
}
