// Package parser turns free-form user text into a structured query, or
// decides there is none. Model output is untrusted: every field is
// validated on receipt and any violation degrades to "no structured
// intent" instead of surfacing an error.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/w-h-a/salesbot/completion"
	"github.com/w-h-a/salesbot/query"
	"github.com/w-h-a/salesbot/store"
	getsafe "github.com/w-h-a/salesbot/util/get_safe"
)

const systemPrompt = `你是销售数据智能客服的意图解析器。判断用户输入是否是对销售记录的结构化查询，只输出一个 JSON 对象。

支持的模块：
1 = 财务记录查询，参数：客户名称、查询字段（amount | total_received | remaining_amount）
6 = 其他对话，无参数

当用户的问题没有写明客户名称时，从历史对话上下文中找到最近一次提到的客户。
无法确定客户或意图不明确时，输出模块 6，不要猜测。

示例：
用户: 客户北京极客邦有限公司的款项到账了多少？
系统: {"模块": 1, "客户名称": "北京极客邦有限公司", "查询字段": "amount"}

用户: 已收了多少？
系统: {"模块": 1, "客户名称": "北京极客邦有限公司", "查询字段": "total_received"}

用户: 还剩多少未收款？
系统: {"模块": 1, "客户名称": "北京极客邦有限公司", "查询字段": "remaining_amount"}

示例2：
用户: 你好
系统: {"模块": 6}

示例3：
用户: 最近一年你过得如何？
系统: {"模块": 6}`

// summaryHeader matches the first line of a deterministic summary. An
// assistant message that matches is the trace of an earlier structured
// turn, so its entity can be reused for pronoun follow-ups the model
// fails to resolve.
var summaryHeader = regexp.MustCompile(`^(.+?)的(总金额|已收金额|未收金额)情况：`)

type Parser struct {
	client completion.Client
}

// Parse classifies and extracts in a single model round-trip. A nil
// result means no structured intent; Parse itself never fails a turn.
func (p *Parser) Parse(ctx context.Context, input string, history []store.Message) *query.Query {
	req := completion.Request{
		Messages: []completion.Message{
			{Role: completion.RoleSystem, Content: p.instruction(history)},
			{Role: completion.RoleUser, Content: input},
		},
		JSONObject: true,
	}

	raw, err := p.client.Complete(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "intent parse degraded", "error", err)
		return nil
	}

	return p.validate(ctx, raw, history)
}

func (p *Parser) instruction(history []store.Message) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if len(history) > 0 {
		sb.WriteString("\n\n历史对话上下文:\n")
		for _, msg := range history {
			sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
		}
	}

	return sb.String()
}

func (p *Parser) validate(ctx context.Context, raw string, history []store.Message) *query.Query {
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		slog.WarnContext(ctx, "intent parse degraded", "error", err, "raw", raw)
		return nil
	}

	module, ok := getsafe.Int(payload, "模块")
	if !ok || query.Kind(module) != query.KindFinancialLookup {
		return nil
	}

	entity := strings.TrimSpace(getsafe.String(payload, "客户名称"))
	if len(entity) == 0 {
		entity = lastKnownEntity(history)
	}
	if len(entity) == 0 {
		return nil
	}

	return &query.Query{
		Kind:   query.KindFinancialLookup,
		Entity: entity,
		Field:  query.Field(getsafe.String(payload, "查询字段")).OrDefault(),
	}
}

// lastKnownEntity walks the windowed history newest-first looking for
// the entity named by the most recent structured turn.
func lastKnownEntity(history []store.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != completion.RoleAssistant {
			continue
		}
		if m := summaryHeader.FindStringSubmatch(history[i].Content); m != nil {
			return m[1]
		}
	}
	return ""
}

func New(client completion.Client) *Parser {
	if client == nil {
		panic("completion client is required")
	}

	return &Parser{
		client: client,
	}
}
