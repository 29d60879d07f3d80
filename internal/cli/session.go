// internal/cli/session.go
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/Corphon/Chronicle/internal/i18n"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/services"
)

const helpText = "Commands: /inventory  /quest  /map  /help  /quit. A number picks a suggested action."

// Game is the part of the game service a terminal session drives.
type Game interface {
	State() *models.GameState
	SuggestedActions() []string
	StartGame(ctx context.Context, ch models.Character) (*models.GameState, error)
	TakeAction(ctx context.Context, text string) (*models.GameState, error)
	HasSave(ctx context.Context) bool
	LoadSaved(ctx context.Context) (*models.GameState, error)
	UserMessage(err error) string
}

var _ Game = (*services.GameService)(nil)

// Session is one interactive terminal game.
type Session struct {
	game    Game
	in      *bufio.Scanner
	w       io.Writer
	out     *termenv.Output
	render  Renderer
	catalog *i18n.Catalog
}

// NewSession reads player input from in and writes the story to w.
func NewSession(game Game, in io.Reader, w io.Writer, render Renderer, lang models.Language) *Session {
	if render == nil {
		render = PlainRenderer
	}
	return &Session{
		game:    game,
		in:      bufio.NewScanner(in),
		w:       w,
		out:     termenv.NewOutput(w),
		render:  render,
		catalog: i18n.Lookup(lang),
	}
}

// Run plays until the player quits or input ends.
func (s *Session) Run(ctx context.Context) error {
	PrintBanner(s.w, s.catalog.Title, s.catalog.Subtitle)

	state, err := s.begin(ctx)
	if err != nil {
		return err
	}
	s.showTurn(state)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, ok := s.ask(s.catalog.InputPlaceholder)
		if !ok {
			return nil
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(s.w, helpText)
			continue
		case "/inventory":
			s.showInventory(s.game.State())
			continue
		case "/quest":
			s.showQuest(s.game.State())
			continue
		case "/map":
			s.showMap(s.game.State())
			continue
		}

		fmt.Fprintln(s.w, s.dim(s.catalog.Loading))
		next, err := s.game.TakeAction(ctx, s.resolve(line))
		if err != nil {
			s.showError(err)
			continue
		}
		s.showTurn(next)
	}
}

// begin resumes the autosave when the player agrees, otherwise creates a
// character and starts a new adventure.
func (s *Session) begin(ctx context.Context) (*models.GameState, error) {
	if s.game.HasSave(ctx) {
		answer, ok := s.ask("Continue your saved adventure? [Y/n]")
		if !ok {
			return nil, io.EOF
		}
		if answer == "" || strings.HasPrefix(strings.ToLower(answer), "y") {
			state, err := s.game.LoadSaved(ctx)
			if err == nil {
				return state, nil
			}
			s.showError(err)
		}
	}

	var ch models.Character
	name, ok := s.ask("Name")
	if !ok {
		return nil, io.EOF
	}
	ch.Name = name

	classes := make([]string, 0, len(s.catalog.Classes))
	for key := range s.catalog.Classes {
		classes = append(classes, key)
	}
	sort.Strings(classes)
	class, ok := s.ask("Class (" + strings.Join(classes, ", ") + ")")
	if !ok {
		return nil, io.EOF
	}
	ch.Class = class

	appearance, ok := s.ask("Appearance")
	if !ok {
		return nil, io.EOF
	}
	ch.Appearance = appearance

	fmt.Fprintln(s.w, s.dim(s.catalog.Loading))
	state, err := s.game.StartGame(ctx, ch)
	if err != nil {
		s.showError(err)
		return nil, fmt.Errorf("start game: %w", err)
	}
	return state, nil
}

// resolve maps "2" to the second suggested action.
func (s *Session) resolve(line string) string {
	n, err := strconv.Atoi(line)
	if err != nil {
		return line
	}
	suggestions := s.game.SuggestedActions()
	if n < 1 || n > len(suggestions) {
		return line
	}
	return suggestions[n-1]
}

func (s *Session) ask(label string) (string, bool) {
	fmt.Fprint(s.w, s.out.String(label+" › ").Foreground(s.out.Color("#f59e0b")))
	if !s.in.Scan() {
		fmt.Fprintln(s.w)
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *Session) dim(text string) termenv.Style {
	return s.out.String(text).Faint()
}

func (s *Session) showTurn(state *models.GameState) {
	if len(state.History) > 0 {
		last := state.History[len(state.History)-1]
		rendered, err := s.render(last.Text)
		if err != nil {
			rendered = last.Text + "\n"
		}
		fmt.Fprint(s.w, rendered)
	}

	if n := len(state.LocationHistory); n > 0 {
		fmt.Fprintln(s.w, s.out.String("📍 "+state.LocationHistory[n-1]).Bold())
	}
	if len(state.ActiveCharacters) > 0 {
		names := make([]string, 0, len(state.ActiveCharacters))
		for _, npc := range state.ActiveCharacters {
			names = append(names, npc.Name)
		}
		fmt.Fprintf(s.w, "%s: %s\n", s.catalog.PeopleLabel, strings.Join(names, ", "))
	}

	for i, action := range s.game.SuggestedActions() {
		fmt.Fprintf(s.w, "  %s %s\n", s.out.String(strconv.Itoa(i+1)+".").Foreground(s.out.Color("#f59e0b")), action)
	}
	fmt.Fprintln(s.w)
}

func (s *Session) showInventory(state *models.GameState) {
	fmt.Fprintln(s.w, s.out.String(s.catalog.InventoryLabel).Bold())
	if len(state.Inventory) == 0 {
		fmt.Fprintln(s.w, "  "+s.catalog.EmptyInventory)
		return
	}
	for _, item := range state.Inventory {
		fmt.Fprintln(s.w, "  • "+item)
	}
}

func (s *Session) showQuest(state *models.GameState) {
	quest := state.CurrentQuest
	if quest == "" {
		quest = s.catalog.AwaitingQuest
	}
	fmt.Fprintf(s.w, "%s: %s\n", s.out.String(s.catalog.QuestLabel).Bold(), quest)
}

func (s *Session) showMap(state *models.GameState) {
	fmt.Fprintln(s.w, s.out.String(s.catalog.MapLabel).Bold())
	for i, name := range state.LocationHistory {
		marker := "  "
		if i == len(state.LocationHistory)-1 {
			marker = "➤ "
		}
		fmt.Fprintf(s.w, "%s%d. %s\n", marker, i+1, name)
	}
}

func (s *Session) showError(err error) {
	fmt.Fprintln(s.w, s.out.String("✖ "+s.game.UserMessage(err)).Foreground(s.out.Color("#ef4444")))
}
