// Package bottest runs discordgo sessions against an in-memory REST fake so
// command handlers can be tested without the network.
package bottest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

const (
	BotID     = "bot"
	GuildID   = "g1"
	ChannelID = "c1"
	UserID    = "u1"
)

// Request is a captured REST call. Reason is the unescaped audit log reason.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Reason string
}

// Decode unmarshals the request body into out.
func (r Request) Decode(out any) error {
	return json.Unmarshal(r.Body, out)
}

type route struct {
	method  string
	pattern string
	status  int
	body    string
}

// Transport answers every request from registered routes; unmatched
// requests get 200 with an empty JSON object.
type Transport struct {
	mu       sync.Mutex
	routes   []route
	requests []Request
}

// Handle answers requests whose method matches and whose path contains
// pattern. Later registrations win.
func (t *Transport) Handle(method, pattern string, status int, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = append(t.routes, route{method: method, pattern: pattern, status: status, body: body})
}

// HandleJSON is Handle with a marshalled body.
func (t *Transport) HandleJSON(method, pattern string, status int, v any) {
	data, _ := json.Marshal(v)
	t.Handle(method, pattern, status, string(data))
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}

	reason, err := url.PathUnescape(req.Header.Get("X-Audit-Log-Reason"))
	if err != nil {
		reason = req.Header.Get("X-Audit-Log-Reason")
	}

	t.mu.Lock()
	t.requests = append(t.requests, Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Body:   body,
		Reason: reason,
	})
	status, respBody := http.StatusOK, "{}"
	for i := len(t.routes) - 1; i >= 0; i-- {
		r := t.routes[i]
		if r.method == req.Method && strings.Contains(req.URL.Path, r.pattern) {
			status, respBody = r.status, r.body
			break
		}
	}
	t.mu.Unlock()

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(respBody)),
		Request:    req,
	}, nil
}

func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

// Find returns the first captured request matching method and path fragment.
func (t *Transport) Find(method, pattern string) (Request, bool) {
	for _, r := range t.Requests() {
		if r.Method == method && strings.Contains(r.Path, pattern) {
			return r, true
		}
	}
	return Request{}, false
}

// Count counts captured requests matching method and path fragment.
func (t *Transport) Count(method, pattern string) int {
	n := 0
	for _, r := range t.Requests() {
		if r.Method == method && strings.Contains(r.Path, pattern) {
			n++
		}
	}
	return n
}

// NewSession returns a session whose REST calls go to the returned
// transport. State knows the bot user and one guild with one text channel.
func NewSession(t testing.TB) (*discordgo.Session, *Transport) {
	t.Helper()
	s, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	tr := &Transport{}
	s.Client = &http.Client{Transport: tr}
	s.MaxRestRetries = 0
	s.State.User = &discordgo.User{ID: BotID, Username: "modtune", Bot: true}
	_ = s.State.GuildAdd(&discordgo.Guild{
		ID:      GuildID,
		Name:    "Test Guild",
		OwnerID: "guild-owner",
		Channels: []*discordgo.Channel{
			{ID: ChannelID, GuildID: GuildID, Name: "general", Type: discordgo.ChannelTypeGuildText},
		},
	})
	return s, tr
}

// Slash builds a guild slash interaction invoked by UserID in ChannelID.
func Slash(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	user := &discordgo.User{ID: UserID, Username: "alice"}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "i1",
		AppID:     BotID,
		Token:     "token",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   GuildID,
		ChannelID: ChannelID,
		Member:    &discordgo.Member{User: user, GuildID: GuildID},
		Data: discordgo.ApplicationCommandInteractionData{
			ID:          "cmd-" + name,
			Name:        name,
			CommandType: discordgo.ChatApplicationCommand,
			Options:     opts,
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Users:   map[string]*discordgo.User{},
				Members: map[string]*discordgo.Member{},
			},
		},
	}}
}

// WithResolvedMember adds u (and a guild member with roles) to the
// interaction's resolved data.
func WithResolvedMember(e *discordgo.InteractionCreate, u *discordgo.User, roles ...string) {
	data := e.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved.Users[u.ID] = u
	data.Resolved.Members[u.ID] = &discordgo.Member{Roles: roles}
	e.Data = data
}

func StringOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func IntOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func UserOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func SubOpt(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

// Response is the decoded body of an interaction callback or followup.
type Response struct {
	Type int `json:"type"`
	Data struct {
		Content string                    `json:"content"`
		Flags   int                       `json:"flags"`
		Embeds  []*discordgo.MessageEmbed `json:"embeds"`
	} `json:"data"`
	Content string                    `json:"content"`
	Flags   int                       `json:"flags"`
	Embeds  []*discordgo.MessageEmbed `json:"embeds"`
}

// Text returns the content of either a callback or a followup body.
func (r Response) Text() string {
	if r.Data.Content != "" {
		return r.Data.Content
	}
	return r.Content
}

// AllEmbeds returns the embeds of either a callback or a followup body.
func (r Response) AllEmbeds() []*discordgo.MessageEmbed {
	if len(r.Data.Embeds) > 0 {
		return r.Data.Embeds
	}
	return r.Embeds
}

func (r Response) Ephemeral() bool {
	return (r.Data.Flags|r.Flags)&int(discordgo.MessageFlagsEphemeral) != 0
}

// Replies decodes every interaction callback and followup, in order.
func (t *Transport) Replies() []Response {
	var out []Response
	for _, r := range t.Requests() {
		if r.Method != http.MethodPost {
			continue
		}
		if !strings.Contains(r.Path, "/callback") && !strings.Contains(r.Path, "/webhooks/") {
			continue
		}
		var resp Response
		if err := r.Decode(&resp); err == nil {
			out = append(out, resp)
		}
	}
	return out
}

// LastReply is the most recent interaction callback or followup.
func (t *Transport) LastReply() (Response, bool) {
	replies := t.Replies()
	if len(replies) == 0 {
		return Response{}, false
	}
	return replies[len(replies)-1], true
}
