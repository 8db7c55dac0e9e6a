package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"breeze/internal/ai"
	"breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

const emotionNeutral = "neutral"

var emotionRules = []struct {
	emotion     string
	keywords    []string
	suggestions []string
}{
	{
		emotion:  "stressed",
		keywords: []string{"stressed", "anxious", "worried", "overwhelmed", "pressure", "deadline"},
		suggestions: []string{
			"Take a 5-minute breathing break",
			"Try the 20-20-20 rule for your eyes",
			"Consider a short walk or stretch",
			"Break your tasks into smaller, manageable chunks",
			"Practice deep breathing exercises",
		},
	},
	{
		emotion:  "sad",
		keywords: []string{"sad", "down", "depressed", "lonely", "empty", "hopeless"},
		suggestions: []string{
			"Take a moment to acknowledge your feelings",
			"Consider reaching out to a friend or loved one",
			"Try some gentle physical activity",
			"Practice gratitude by noting 3 good things today",
			"Consider professional support if these feelings persist",
		},
	},
	{
		emotion:  "angry",
		keywords: []string{"angry", "mad", "frustrated", "irritated", "annoyed", "furious"},
		suggestions: []string{
			"Take a step back and count to 10",
			"Try some physical activity to release tension",
			"Practice deep breathing or meditation",
			"Consider what's really bothering you",
			"Take a break from the situation if possible",
		},
	},
	{
		emotion:  "happy",
		keywords: []string{"happy", "great", "excited", "wonderful", "amazing", "fantastic"},
		suggestions: []string{
			"Share your joy with others",
			"Take time to appreciate this moment",
			"Consider what contributed to your happiness",
			"Use this energy to tackle challenging tasks",
			"Practice gratitude to sustain positive feelings",
		},
	},
	{
		emotion:  "tired",
		keywords: []string{"tired", "exhausted", "sleepy", "fatigued", "drained", "burned out"},
		suggestions: []string{
			"Take a proper break or nap if possible",
			"Ensure you're staying hydrated",
			"Check your sleep schedule",
			"Try some gentle stretching or movement",
			"Consider reducing screen time",
			"Practice the 20-20-20 rule for eye rest",
		},
	},
}

var neutralSuggestions = []string{
	"Take regular breaks from your screen",
	"Stay hydrated throughout the day",
	"Practice good posture",
	"Get some fresh air if possible",
	"Remember to blink regularly to keep your eyes moist",
	"Consider your work-life balance",
}

// EmotionService reads a short check-in and suggests something to do about it
type EmotionService struct {
	gen    ai.Generator
	logger logging.Logger
}

func NewEmotionService(gen ai.Generator, logger logging.Logger) *EmotionService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &EmotionService{gen: gen, logger: logger}
}

type emotionReply struct {
	Emotion     string   `json:"emotion"`
	Suggestions []string `json:"suggestions"`
}

// Analyze classifies text. Provider failures fall back to keyword matching.
func (s *EmotionService) Analyze(ctx context.Context, text string) (types.EmotionAnalysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.EmotionAnalysis{}, errors.HandleValidationError("AnalyzeEmotion", "text", text, "text is required")
	}

	if s.gen != nil {
		start := time.Now()
		result, err := s.generate(ctx, text)
		if err == nil {
			logging.LogOperation(s.logger, "AnalyzeEmotion", time.Since(start), map[string]interface{}{"emotion": result.Emotion})
			return result, nil
		}
		logging.LogError(s.logger, err, "AnalyzeEmotion", map[string]interface{}{"text_len": len(text)})
	}

	return FallbackEmotion(text), nil
}

func (s *EmotionService) generate(ctx context.Context, text string) (types.EmotionAnalysis, error) {
	reply, err := generateText(ctx, s.gen, "AnalyzeEmotion", EmotionPrompt(text))
	if err != nil {
		return types.EmotionAnalysis{}, err
	}
	decoded, err := ai.DecodeJSON[emotionReply]("AnalyzeEmotion", reply)
	if err != nil {
		return types.EmotionAnalysis{}, err
	}

	emotion := strings.ToLower(strings.TrimSpace(decoded.Emotion))
	if emotion == "" || len(decoded.Suggestions) == 0 {
		return types.EmotionAnalysis{}, errors.HandleUpstreamError("AnalyzeEmotion", "decode",
			fmt.Errorf("reply is missing emotion or suggestions"))
	}
	return types.EmotionAnalysis{Emotion: emotion, Suggestions: decoded.Suggestions, Source: types.SourceAI}, nil
}

// EmotionPrompt asks for a one-word emotion and a few concrete suggestions as JSON
func EmotionPrompt(text string) string {
	return fmt.Sprintf(`You are a supportive digital-wellness assistant. Read the user's check-in and identify their main emotion.

Return ONLY strict JSON with this shape:
{"emotion": string, "suggestions": string[]}

Use a single lowercase word for emotion (for example stressed, sad, angry, happy, tired, neutral).
Give 3-5 short, practical suggestions suited to someone working at a screen.

Check-in: %q`, text)
}

// FallbackEmotion matches keywords in order; the first matching rule wins
func FallbackEmotion(text string) types.EmotionAnalysis {
	lower := strings.ToLower(text)
	for _, rule := range emotionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return types.EmotionAnalysis{
					Emotion:     rule.emotion,
					Suggestions: append([]string(nil), rule.suggestions...),
					Source:      types.SourceFallback,
				}
			}
		}
	}
	return types.EmotionAnalysis{
		Emotion:     emotionNeutral,
		Suggestions: append([]string(nil), neutralSuggestions...),
		Source:      types.SourceFallback,
	}
}
