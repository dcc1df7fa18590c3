package ai

import (
	"context"
)

// Provider defines the contract for the language-model side of the chat flow.
// This interface allows for swapping different AI providers (Gemini, OpenAI, etc.) in the future.
type Provider interface {
	// ClassifyRentIntent decides whether the message asks to rent a bike and
	// extracts the hub name if one was mentioned. hubContext describes the
	// known hubs so the model maps nicknames to canonical names.
	ClassifyRentIntent(ctx context.Context, message, hubContext string) (*RentIntent, error)

	// ClassifyReturnIntent decides whether the message asks to return a bike
	// and whether the rider wants a station or a zone return.
	ClassifyReturnIntent(ctx context.Context, message string) (*ReturnIntent, error)

	// ClassifyYesNo reduces a free-form confirmation reply to yes, no, or unknown.
	ClassifyYesNo(ctx context.Context, message string) (YesNo, error)

	// GenerateSentence renders a reply to the user from a structured payload
	// and the recent conversation history.
	GenerateSentence(ctx context.Context, instruction string, payload any, history []string) (string, error)
}
