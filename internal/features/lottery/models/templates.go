package models

import "strings"

// Default notification texts used when the creator does not override them.
const (
	DefaultWinnerTemplate  = "{member}, congratulations! You won {goodsName} in the lottery {lotteryTitle}. Contact the creator to claim your prize."
	DefaultCreatorTemplate = "Your lottery {lotteryTitle} (#{lotterySn}) has been drawn.\nWinners:\n{awardUserList}"
	DefaultGroupTemplate   = "Lottery {lotteryTitle} (#{lotterySn}) has been drawn.\n\nParticipants: {joinNum}\nWinners:\n{awardUserList}"
)

// NotificationTemplates holds the three notification texts of a lottery.
// Placeholders are substituted verbatim, unknown placeholders are left alone.
type NotificationTemplates struct {
	Winner  string `json:"winner"`
	Creator string `json:"creator"`
	Group   string `json:"group"`
}

// DefaultTemplates returns the stock notification texts.
func DefaultTemplates() NotificationTemplates {
	return NotificationTemplates{
		Winner:  DefaultWinnerTemplate,
		Creator: DefaultCreatorTemplate,
		Group:   DefaultGroupTemplate,
	}
}

// FillDefaults replaces empty template fields with the stock texts.
func (t *NotificationTemplates) FillDefaults() {
	if t.Winner == "" {
		t.Winner = DefaultWinnerTemplate
	}
	if t.Creator == "" {
		t.Creator = DefaultCreatorTemplate
	}
	if t.Group == "" {
		t.Group = DefaultGroupTemplate
	}
}

// TemplateData carries the placeholder values for one rendering.
type TemplateData struct {
	Member        string
	LotteryTitle  string
	GoodsName     string
	LotterySN     string
	JoinNum       string
	AwardUserList string
}

// Render substitutes the supported placeholders in tmpl.
func (d TemplateData) Render(tmpl string) string {
	r := strings.NewReplacer(
		"{member}", d.Member,
		"{lotteryTitle}", d.LotteryTitle,
		"{goodsName}", d.GoodsName,
		"{lotterySn}", d.LotterySN,
		"{joinNum}", d.JoinNum,
		"{awardUserList}", d.AwardUserList,
	)
	return r.Replace(tmpl)
}
