package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/logging"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/session"
)

const (
	Greeting     = "Hello! I'm your BudgetBuddy assistant. How can I help you today?"
	FallbackText = "I'm having trouble connecting to the server. Please try again later."
)

const (
	SenderBot  = "bot"
	SenderUser = "user"
)

// Bot is the backend chatbot endpoint.
type Bot interface {
	Chat(ctx context.Context, req models.ChatRequest) (string, error)
}

type Message struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Conversation is the chat transcript of the signed-in user.
type Conversation struct {
	bot     Bot
	session session.Store
	now     func() time.Time
	logger  zerolog.Logger

	mu       sync.Mutex
	messages []Message
}

func NewConversation(bot Bot, store session.Store) *Conversation {
	c := &Conversation{
		bot:     bot,
		session: store,
		now:     time.Now,
		logger:  logging.New("chat"),
	}
	c.Reset()
	return c
}

// Reset starts over with only the greeting.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = []Message{{Sender: SenderBot, Text: Greeting, SentAt: c.now()}}
}

func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Send appends the user's message and the bot's reply, returning the reply.
// Blank input is ignored and returns ok=false. Backend failures are answered
// with FallbackText, except a 401: the session is gone and the error is
// returned without a reply.
func (c *Conversation) Send(ctx context.Context, text string) (reply Message, ok bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, false, nil
	}
	c.append(Message{Sender: SenderUser, Text: text, SentAt: c.now()})

	req := models.ChatRequest{Message: text}
	if tokens, err := c.session.Get(); err == nil {
		if id, ok := session.UserID(tokens.Access); ok {
			req.UserID = &id
		}
	}

	answer, err := c.bot.Chat(ctx, req)
	if api.IsUnauthorized(err) {
		return Message{}, false, err
	}
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			c.logger.Warn().Err(err).Msg("chatbot request failed")
		}
		answer = FallbackText
	}
	reply = Message{Sender: SenderBot, Text: answer, SentAt: c.now()}
	c.append(reply)
	return reply, true, nil
}

func (c *Conversation) append(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}
