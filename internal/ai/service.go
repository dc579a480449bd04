// Package ai wraps the chat-completion API behind a small service used for
// tag extraction, matchmaking, and the advice endpoint. Every call here is
// best effort: callers treat failures as empty results, never as fatal.
package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
	"peerbridge/internal/utils"
)

const (
	tagExtractionSystemPrompt = "Extract key tags from the following user experiences. " +
		"Return the tags as a comma-separated list with no other text."

	userMatchSystemPrompt = `You are a matchmaker for finding people with specific experience based on the input. You will receive a userInput and his disability type which you will use to go through a list of users with their _id, experience, tags, disability type, and availability status.
Sort users primarily based on the closest match in experience to the input. If multiple users have similar experience, put those users that have the same disability type as the user at the beginning of the array.
Return only users who have relevant experience that matches the input. If no users match the experience, it's okay to return nothing. Exclude users whose experience does not align with the input.
Return the sorted list of user IDs in the format: id1, id2, id3. If you don't have any user IDs to return, return an empty string. You only have 2 formats to return: a list of user IDs or an empty string! That is very important.`

	postMatchSystemPrompt = `You are a content filter that finds posts relevant to a specific input. You will receive userInput and a list of posts with their _id, title, tags, and content.
Sort and return only posts that closely match the input based on tags and content. If no posts match the input, it's okay to return nothing.
Return the sorted list of post IDs in the format: id1, id2, id3. If no posts match, return an empty string.`

	adviceSystemPrompt = `You are a legal advisor specializing in administrative support and legal guidance for individuals with disabilities. Provide advice on gathering documentation, navigating administrative processes, and understanding relevant laws.`
)

// Completer is the single seam to the chat-completion API. Tests substitute
// a canned implementation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAICompleter calls the OpenAI chat completions endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	return &OpenAICompleter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", utils.NewAppError(utils.ErrExternalService, "Chat completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", utils.NewAppError(utils.ErrExternalService, "Chat completion returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// Service exposes the application-level AI operations.
type Service struct {
	completer Completer
}

func NewService(completer Completer) *Service {
	return &Service{completer: completer}
}

// ExtractTags asks the model to distill short tags from free-form experience
// descriptions.
func (s *Service) ExtractTags(ctx context.Context, experiences []string) ([]string, error) {
	if len(experiences) == 0 {
		return nil, nil
	}
	content, err := s.completer.Complete(ctx, tagExtractionSystemPrompt, strings.Join(experiences, "\n"))
	if err != nil {
		return nil, err
	}
	return SplitCommaList(content), nil
}

// MatchUsers asks the model to rank candidate users against the input and
// returns their IDs in ranked order. IDs the model invents are discarded.
func (s *Service) MatchUsers(ctx context.Context, userInput, disabilityType string, candidates []*models.User) ([]primitive.ObjectID, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for _, u := range candidates {
		fmt.Fprintf(&b, "ID: %s, Experience: %s, Tags: %s, Disability Type: %s, Status: %s\n",
			u.ID.Hex(), u.Experience, strings.Join(u.AITags, ", "), u.DisabilityType, u.Availability)
	}

	userPrompt := fmt.Sprintf("Here is the user's input: %q. The user has the disability type: %q. Find matching users from the following list:\n%s",
		userInput, disabilityType, b.String())

	content, err := s.completer.Complete(ctx, userMatchSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return ParseObjectIDList(content), nil
}

// MatchPosts asks the model to rank candidate posts against the input and
// returns their IDs in ranked order.
func (s *Service) MatchPosts(ctx context.Context, userInput string, candidates []*models.Post) ([]primitive.ObjectID, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for _, p := range candidates {
		fmt.Fprintf(&b, "ID: %s, Title: %s, Tags: %s, Content: %s\n",
			p.ID.Hex(), p.Title, strings.Join(p.AITags, ", "), p.Content)
	}

	userPrompt := fmt.Sprintf("Here is the user's input: %q. Find matching posts from the following list:\n%s",
		userInput, b.String())

	content, err := s.completer.Complete(ctx, postMatchSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return ParseObjectIDList(content), nil
}

// Advise answers a free-form question with guidance text.
func (s *Service) Advise(ctx context.Context, userInput string) (string, error) {
	userPrompt := fmt.Sprintf("User's question: %q. Provide guidance to help them accomplish their task efficiently.", userInput)
	return s.completer.Complete(ctx, adviceSystemPrompt, userPrompt)
}
