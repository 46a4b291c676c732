package player

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/music/timecode"
	"github.com/keshon/nyaplay/internal/music/track"
)

const (
	EmbedColor = 0xb01e66
	ErrorColor = 0xff0e0e
)

// Embed builds the standard reply embed.
func Embed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       EmbedColor,
	}
}

// ErrorEmbed is Embed in the error colour.
func ErrorEmbed(title, description string) *discordgo.MessageEmbed {
	e := Embed(title, description)
	e.Color = ErrorColor
	return e
}

// LengthLabel renders an entry's duration, "🔴 Live" for streams and "?" for
// entries not looked up yet.
func LengthLabel(e track.Entry) string {
	if t, ok := e.(*track.Track); ok && t.IsStream {
		return "🔴 Live"
	}
	d, ok := e.Length()
	if !ok {
		return "?"
	}
	return timecode.Format(d)
}

// PositionLabel renders "pos/len" for a track, or "🔴 Live" for a stream.
func PositionLabel(t *track.Track, pos time.Duration) string {
	if t.IsStream {
		return "🔴 Live"
	}
	return timecode.Format(pos) + "/" + timecode.Format(t.Duration)
}

func thumbnail(url string) *discordgo.MessageEmbedThumbnail {
	if url == "" {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: url}
}

// NowPlayingEmbed is posted to the bound channel when a track starts.
func NowPlayingEmbed(t *track.Track) *discordgo.MessageEmbed {
	e := Embed("Now playing: "+t.Title, "")
	e.URL = t.URI
	e.Thumbnail = thumbnail(t.Artwork)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Duration", Value: LengthLabel(t), Inline: true},
		{Name: "Requested by", Value: t.Requester.Mention(), Inline: true},
	}
	return e
}

// TrackEmbed describes the current track at position pos.
func TrackEmbed(t *track.Track, pos time.Duration) *discordgo.MessageEmbed {
	e := Embed(t.Title, "")
	e.URL = t.URI
	e.Thumbnail = thumbnail(t.Artwork)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Position", Value: PositionLabel(t, pos), Inline: true},
		{Name: "Uploader", Value: t.Author, Inline: true},
		{Name: "Requested by", Value: t.Requester.Mention(), Inline: true},
	}
	return e
}

func skippedEmbed(e track.Entry, err error) *discordgo.MessageEmbed {
	em := ErrorEmbed("Couldn't play "+e.DisplayTitle(), fmt.Sprintf("Skipping it. (%v)", err))
	em.URL = e.Link()
	return em
}

func exceptionEmbed(t *track.Track, msg string) *discordgo.MessageEmbed {
	title := "Playback failed"
	if t != nil {
		title = "Playback failed: " + t.Title
	}
	return ErrorEmbed(title, msg)
}

func stuckEmbed(t *track.Track) *discordgo.MessageEmbed {
	title := "Track got stuck"
	if t != nil {
		title = "Track got stuck: " + t.Title
	}
	return ErrorEmbed(title, "Moving on to the next one.")
}

func idleEmbed(timeout time.Duration) *discordgo.MessageEmbed {
	return Embed("Disconnected", fmt.Sprintf("Nothing was queued for %s.", timeout))
}
