package notify

import (
	"fmt"
	"strings"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/pkg/utils"
)

var stanceLabels = map[models.Stance]string{
	models.StanceBullish: "看多",
	models.StanceBearish: "看空",
	models.StanceNeutral: "观望",
}

// RenderSingle renders one recommendation as a markdown report.
func RenderSingle(rec *models.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s 分析结果\n\n", rec.Symbol)
	fmt.Fprintf(&b, "**方向**: %s  **置信度**: %s\n", stanceLabels[rec.Direction], utils.FormatConfidence(rec.Confidence))
	fmt.Fprintf(&b, "**现价**: %.2f", rec.Price)
	if rec.Target > 0 {
		fmt.Fprintf(&b, "  **目标价**: %.2f", rec.Target)
	}
	if rec.StopLoss > 0 {
		fmt.Fprintf(&b, "  **止损价**: %.2f", rec.StopLoss)
	}
	b.WriteString("\n")
	if rec.Source != "" {
		fmt.Fprintf(&b, "**数据源**: %s\n", rec.Source)
	}

	b.WriteString("\n")
	for _, v := range rec.Verdicts {
		if !v.Complete() {
			fmt.Fprintf(&b, "- %s: 未完成 (%s)\n", roleLabel(v.Role), v.Status)
			continue
		}
		line := fmt.Sprintf("- %s: %s %s", roleLabel(v.Role), stanceLabels[v.Stance], utils.FormatConfidence(v.Confidence))
		if v.Rationale != "" {
			line += " " + v.Rationale
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "\n> %s\n", rec.Timestamp.Format("2006-01-02 15:04"))
	return b.String()
}

// RenderBatch renders a combined report for one run.
func RenderBatch(recs []*models.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 盯盘报告 (%d 只股票)\n\n", len(recs))
	for _, rec := range recs {
		fmt.Fprintf(&b, "**%s**: %s %s  现价 %.2f", rec.Symbol,
			stanceLabels[rec.Direction], utils.FormatConfidence(rec.Confidence), rec.Price)
		if rec.Target > 0 {
			fmt.Fprintf(&b, "  目标 %.2f", rec.Target)
		}
		b.WriteString("\n")
	}
	if len(recs) > 0 {
		fmt.Fprintf(&b, "\n> %s\n", recs[0].Timestamp.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func roleLabel(role models.AgentRole) string {
	switch role {
	case models.RoleMarket:
		return "大盘"
	case models.RoleTechnical:
		return "技术面"
	case models.RoleFundamental:
		return "基本面"
	case models.RoleNews:
		return "消息面"
	default:
		return string(role)
	}
}
