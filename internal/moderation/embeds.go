package moderation

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/storage"
	"github.com/keshon/modtune/pkg/util"
)

const DefaultReason = "No reason provided"

// Reason falls back to DefaultReason for blank input.
func Reason(s string) string {
	if s == "" {
		return DefaultReason
	}
	return s
}

// ActionEmbed is the confirmation shown after a moderation action.
func ActionEmbed(title string, target, moderator *discordgo.User, reason string, extra ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: mentionWithName(target), Inline: true},
		{Name: "Moderator", Value: moderator.Mention(), Inline: true},
	}
	fields = append(fields, extra...)
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Reason", Value: Reason(reason)})
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     config.ColorModeration,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// MuteDurationField shows the duration as the moderator typed it,
// "Permanent" when none was given.
func MuteDurationField(raw string) *discordgo.MessageEmbedField {
	v := strings.TrimSpace(raw)
	if v == "" {
		v = "Permanent"
	}
	return &discordgo.MessageEmbedField{Name: "Duration", Value: v, Inline: true}
}

// WarningsEmbed lists the latest five warnings of a member.
func WarningsEmbed(target *discordgo.User, warnings []storage.Warning) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("⚠️ Warnings for %s", target.Username),
		Color:  config.ColorWarning,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total warnings: %d", len(warnings))},
	}
	start := max(len(warnings)-5, 0)
	for _, w := range warnings[start:] {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("Warning #%d", w.ID),
			Value: fmt.Sprintf("**Reason:** %s\n**Moderator:** <@%s>\n**Date:** %s",
				util.Truncate(w.Reason, 200), w.ModeratorID, util.FormatDateTpl(w.Timestamp, "YYYY-MM-DD hh:mm")),
		})
	}
	return embed
}

// ModLogEmbed is posted to the guild's log channel.
func ModLogEmbed(entry storage.ModLogEntry) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📋 " + entry.Action,
		Color: config.ColorModeration,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: fmt.Sprintf("<@%s>", entry.TargetID), Inline: true},
			{Name: "Moderator", Value: fmt.Sprintf("<@%s>", entry.ModeratorID), Inline: true},
			{Name: "Reason", Value: Reason(entry.Reason)},
		},
		Timestamp: entry.Timestamp.Format(time.RFC3339),
	}
}

func mentionWithName(u *discordgo.User) string {
	return fmt.Sprintf("%s (%s)", u.Mention(), u.Username)
}
