package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/salesbot/completion"
	"github.com/w-h-a/salesbot/query"
	"github.com/w-h-a/salesbot/store"
)

type fakeClient struct {
	response string
	err      error
	requests []completion.Request
}

func (f *fakeClient) Complete(ctx context.Context, req completion.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeClient) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	return nil, errors.New("not implemented")
}

func TestParseFirstTurnFinancialLookup(t *testing.T) {
	client := &fakeClient{response: `{"模块": 1, "客户名称": "北京极客邦有限公司", "查询字段": "amount"}`}
	p := New(client)

	q := p.Parse(context.Background(), "客户北京极客邦有限公司的款项到账了多少？", nil)

	require.NotNil(t, q)
	assert.Equal(t, query.KindFinancialLookup, q.Kind)
	assert.Equal(t, "北京极客邦有限公司", q.Entity)
	assert.Equal(t, query.FieldAmount, q.Field)

	require.Len(t, client.requests, 1)
	assert.True(t, client.requests[0].JSONObject)
}

func TestParseFollowUpReusesEntityFromHistory(t *testing.T) {
	client := &fakeClient{response: `{"模块": 1, "客户名称": "北京极客邦有限公司", "查询字段": "total_received"}`}
	p := New(client)

	history := []store.Message{
		{Role: "user", Content: "客户北京极客邦有限公司的款项到账了多少？"},
		{Role: "assistant", Content: "北京极客邦有限公司的总金额情况：\n找到 1 条记录，总金额合计: 100.00 元"},
	}

	q := p.Parse(context.Background(), "已收了多少？", history)

	require.NotNil(t, q)
	assert.Equal(t, "北京极客邦有限公司", q.Entity)
	assert.Equal(t, query.FieldReceived, q.Field)

	// the windowed history must have been exposed to the model
	require.Len(t, client.requests, 1)
	system := client.requests[0].Messages[0]
	assert.Equal(t, completion.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "历史对话上下文")
	assert.Contains(t, system.Content, "北京极客邦有限公司的款项到账了多少")
}

func TestParseBackfillsEntityFromLastStructuredTurn(t *testing.T) {
	// the model classified the follow-up but omitted the entity
	client := &fakeClient{response: `{"模块": 1, "查询字段": "remaining_amount"}`}
	p := New(client)

	history := []store.Message{
		{Role: "user", Content: "客户北京极客邦有限公司的款项到账了多少？"},
		{Role: "assistant", Content: "北京极客邦有限公司的总金额情况：\n找到 1 条记录，总金额合计: 100.00 元"},
		{Role: "user", Content: "谢谢"},
		{Role: "assistant", Content: "不客气！"},
	}

	q := p.Parse(context.Background(), "还剩多少未收款？", history)

	require.NotNil(t, q)
	assert.Equal(t, "北京极客邦有限公司", q.Entity)
	assert.Equal(t, query.FieldRemaining, q.Field)
}

func TestParseChitChatYieldsNoIntent(t *testing.T) {
	client := &fakeClient{response: `{"模块": 6}`}
	p := New(client)

	assert.Nil(t, p.Parse(context.Background(), "你好", nil))
}

func TestParseNoIntentOnMissingEntity(t *testing.T) {
	client := &fakeClient{response: `{"模块": 1, "查询字段": "amount"}`}
	p := New(client)

	// no structured turn in history to backfill from
	assert.Nil(t, p.Parse(context.Background(), "已收了多少？", nil))
}

func TestParseDegradesOnMalformedJSON(t *testing.T) {
	client := &fakeClient{response: `{"模块": 1,`}
	p := New(client)

	assert.Nil(t, p.Parse(context.Background(), "客户甲的款项到账了多少？", nil))
}

func TestParseDegradesOnUnknownModule(t *testing.T) {
	client := &fakeClient{response: `{"模块": 42, "客户名称": "甲"}`}
	p := New(client)

	assert.Nil(t, p.Parse(context.Background(), "客户甲的款项到账了多少？", nil))
}

func TestParseDegradesOnModelError(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}
	p := New(client)

	assert.Nil(t, p.Parse(context.Background(), "客户甲的款项到账了多少？", nil))
}

func TestParseDefaultsUnknownField(t *testing.T) {
	client := &fakeClient{response: `{"模块": 1, "客户名称": "甲", "查询字段": "bogus"}`}
	p := New(client)

	q := p.Parse(context.Background(), "客户甲的款项到账了多少？", nil)

	require.NotNil(t, q)
	assert.Equal(t, query.FieldAmount, q.Field)
}

func TestParseToleratesQuotedModuleNumber(t *testing.T) {
	client := &fakeClient{response: `{"模块": "1", "客户名称": "甲", "查询字段": "amount"}`}
	p := New(client)

	require.NotNil(t, p.Parse(context.Background(), "客户甲的款项到账了多少？", nil))
}
