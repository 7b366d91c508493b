package strategy

import "strings"

// lexiconEmotions is the default keyword-based emotion classifier. Negative
// lexicons are checked first so mixed messages err toward care.
type lexiconEmotions struct {
	loader *Loader
}

func (c *lexiconEmotions) ClassifyEmotion(text string) (EmotionType, Intensity) {
	lower := strings.ToLower(text)
	cfg := c.loader.Config().Emotion

	for _, tier := range []struct {
		words     []string
		intensity Intensity
	}{
		{cfg.Negative.High, IntensityHigh},
		{cfg.Negative.Medium, IntensityMedium},
		{cfg.Negative.Low, IntensityLow},
	} {
		for _, w := range tier.words {
			if strings.Contains(lower, w) {
				return EmotionNegative, tier.intensity
			}
		}
	}

	for _, tier := range []struct {
		words     []string
		intensity Intensity
	}{
		{cfg.Positive.High, IntensityHigh},
		{cfg.Positive.Medium, IntensityMedium},
		{cfg.Positive.Low, IntensityLow},
	} {
		for _, w := range tier.words {
			if strings.Contains(lower, w) {
				return EmotionPositive, tier.intensity
			}
		}
	}

	return EmotionNeutral, IntensityMedium
}

// lexiconTypes is the default conversation-type classifier. Categories are
// checked in a fixed order and the first match wins; casual chat is the
// default.
type lexiconTypes struct {
	loader *Loader
}

func (c *lexiconTypes) ClassifyType(text string) ConversationType {
	lower := strings.ToLower(text)
	cfg := c.loader.Config().ConversationTypes

	ordered := []struct {
		ctype ConversationType
		words []string
	}{
		{TypeEmotionalVent, cfg.EmotionalVent},
		{TypeOpinionDiscussion, cfg.OpinionDiscussion},
		{TypeInfoRequest, cfg.InfoRequest},
		{TypeDecisionConsulting, cfg.DecisionConsulting},
	}
	for _, cat := range ordered {
		for _, w := range cat.words {
			if strings.Contains(lower, w) {
				return cat.ctype
			}
		}
	}
	return TypeCasualChat
}
