// Package formatter renders retrieved records into an exact,
// reproducible numeric summary. No model output flows through here, so
// the numeric claims in a response are always auditable.
package formatter

import (
	"fmt"
	"math"
	"strings"

	"github.com/w-h-a/salesbot/query"
	"github.com/w-h-a/salesbot/records"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoMatch is the fixed reply for an empty record set.
const NoMatch = "未找到相关记录"

var fieldLabels = map[query.Field]string{
	query.FieldAmount:    "总金额",
	query.FieldReceived:  "已收金额",
	query.FieldRemaining: "未收金额",
}

var printer = message.NewPrinter(language.English)

// Label is the human name of a monetary field.
func Label(f query.Field) string {
	return fieldLabels[f.OrDefault()]
}

// Summarize renders entity, field label, record count, the field's sum,
// and one line per record. The printed sum is computed over the same
// cent-rounded values the detail lines show, so the two can never
// disagree.
func Summarize(recs []records.Record, field query.Field, entity string) string {
	if len(recs) == 0 {
		return NoMatch
	}

	field = field.OrDefault()
	label := fieldLabels[field]

	var total int64
	details := make([]string, 0, len(recs))
	for _, rec := range recs {
		c := cents(rec.Value(field))
		total += c
		details = append(details, fmt.Sprintf(
			"- %s: %s 元",
			rec.EntryDate.Format("2006-01-02 15:04:05"),
			money(c),
		))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s的%s情况：\n", entity, label))
	sb.WriteString(fmt.Sprintf("找到 %d 条记录，%s合计: %s 元\n\n", len(recs), label, money(total)))
	sb.WriteString(strings.Join(details, "\n"))

	return sb.String()
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func money(c int64) string {
	return printer.Sprintf("%.2f", float64(c)/100)
}
