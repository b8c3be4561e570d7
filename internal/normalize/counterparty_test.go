/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package normalize

import (
	"testing"

	"github.com/jerry-enebeli/passbook/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterpartyPatterns(t *testing.T) {
	n := New(nil)

	cp := n.counterparty("ไป SCB X5678 NAME SURNAME")
	require.NotNil(t, cp)
	assert.Equal(t, "SCB X5678", cp.ref)
	assert.Equal(t, "NAME SURNAME", cp.name)
	assert.Equal(t, 0.7, cp.confidence)

	cp = n.counterparty("PAYROLL REF 20260301 ACME")
	require.NotNil(t, cp)
	assert.Equal(t, "20260301", cp.ref)
	assert.Equal(t, "ACME", cp.name)
	assert.Equal(t, 0.6, cp.confidence)

	cp = n.counterparty("PAYROLL ACME CO LTD")
	require.NotNil(t, cp)
	assert.Empty(t, cp.ref)
	assert.Equal(t, "ACME CO LTD", cp.name)

	cp = n.counterparty("โอนเงินจาก SOMSRI KBANK")
	require.NotNil(t, cp)
	assert.Equal(t, "SOMSRI", cp.name)
	assert.Equal(t, 0.5, cp.confidence)
	assert.False(t, cp.internal)

	assert.Nil(t, n.counterparty("from x"))
	assert.Nil(t, n.counterparty("STARBUCKS THONGLOR"))
	assert.Nil(t, n.counterparty("TOYOTA 1234 SERVICE"))
}

func TestCounterpartyInternalByTrailingCode(t *testing.T) {
	n := New([]model.Account{{AccountID: "acc_k", Name: "KBank Savings"}, {AccountID: "acc_s", Name: "SCB Easy"}})

	cp := n.counterparty("โอนเงินจาก SOMSRI KBANK")
	require.NotNil(t, cp)
	assert.True(t, cp.internal)
	assert.Equal(t, "KBank Savings", cp.name)

	cp = n.counterparty("ไป SCB X5678 NAME SURNAME")
	require.NotNil(t, cp)
	assert.True(t, cp.internal)
	assert.Equal(t, "SCB Easy", cp.name)

	cp = n.counterparty("ไป SCB X5678 บริษัท ตัวอย่าง จำกัด")
	require.NotNil(t, cp)
	assert.False(t, cp.internal)
	assert.Equal(t, "บริษัท ตัวอย่าง จำกัด", cp.name)
}

func TestNameTokens(t *testing.T) {
	assert.Equal(t, []string{"kbank", "savings"}, nameTokens("KBank - Savings"))
	assert.Equal(t, []string{"scb", "ออมทรัพย์"}, nameTokens("SCB ออมทรัพย์ X"))
}
