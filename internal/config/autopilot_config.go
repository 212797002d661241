package config

import "time"

const (
	// Eligibility
	ReplyCooldown = 8 * time.Second

	// Turn-taking
	DefaultMaxTurnsPerSide = 5
	HistoryWindow          = 8

	// Typing delay: base + per-character cost, capped.
	TypingDelayBase    = 1500 * time.Millisecond
	TypingDelayPerChar = 90 * time.Millisecond
	TypingDelayCap     = 10 * time.Second

	// Generation
	ReplyMaxTokens    = 80
	ReplyTemperature  = 0.7
	SynthesisTimeout  = 30 * time.Second
	FallbackReply     = "That sounds fun—want to pick a time?"
	DefaultSeedVoice  = "Warm, curious, and upbeat."
	DefaultHumanVoice = "Warm, proactive, and excited to lock in a simple date plan."
)
