package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	data := TemplateData{
		Member:        "Alice",
		LotteryTitle:  "Spring Giveaway",
		GoodsName:     "Headphones",
		LotterySN:     "10042",
		JoinNum:       "87",
		AwardUserList: "Gold: Alice",
	}

	out := data.Render("{member} won {goodsName} in {lotteryTitle} (#{lotterySn}), {joinNum} joined:\n{awardUserList}")
	assert.Equal(t, "Alice won Headphones in Spring Giveaway (#10042), 87 joined:\nGold: Alice", out)
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	out := TemplateData{Member: "Bob"}.Render("{member} {unknown} {member}")
	assert.Equal(t, "Bob {unknown} Bob", out)
}

func TestRenderIsVerbatim(t *testing.T) {
	// Placeholder-looking text inside values must not be expanded again.
	data := TemplateData{Member: "{lotteryTitle}", LotteryTitle: "Real Title"}
	assert.Equal(t, "{lotteryTitle}", data.Render("{member}"))
}

func TestFillDefaultsOnlyFillsEmptyFields(t *testing.T) {
	tpl := NotificationTemplates{Winner: "custom winner text"}
	tpl.FillDefaults()

	assert.Equal(t, "custom winner text", tpl.Winner)
	assert.Equal(t, DefaultCreatorTemplate, tpl.Creator)
	assert.Equal(t, DefaultGroupTemplate, tpl.Group)
}
