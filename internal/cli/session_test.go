package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/services"
)

type fakeGame struct {
	state     *models.GameState
	suggested []string
	saved     bool
	started   *models.Character
	actions   []string
	actionErr error
}

func (f *fakeGame) State() *models.GameState    { return f.state.Clone() }
func (f *fakeGame) SuggestedActions() []string  { return f.suggested }
func (f *fakeGame) HasSave(context.Context) bool { return f.saved }
func (f *fakeGame) UserMessage(err error) string {
	return services.UserMessage(err, models.LanguageEnglish)
}

func (f *fakeGame) StartGame(_ context.Context, ch models.Character) (*models.GameState, error) {
	f.started = &ch
	f.state = &models.GameState{
		GameStarted:     true,
		History:         []models.Turn{{Role: models.RoleModel, Text: "You wake in a dusty crypt."}},
		LocationHistory: []string{"Dusty Crypt"},
		Inventory:       []string{"rusty key"},
		CurrentQuest:    "Find the gold coin",
	}
	f.suggested = []string{"Open the chest", "Leave"}
	return f.state.Clone(), nil
}

func (f *fakeGame) TakeAction(_ context.Context, text string) (*models.GameState, error) {
	f.actions = append(f.actions, text)
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	f.state.History = append(f.state.History,
		models.Turn{Role: models.RoleUser, Text: text},
		models.Turn{Role: models.RoleModel, Text: "The chest creaks open."})
	f.state.Inventory = append(f.state.Inventory, "gold coin")
	return f.state.Clone(), nil
}

func (f *fakeGame) LoadSaved(context.Context) (*models.GameState, error) {
	f.state = &models.GameState{
		GameStarted:     true,
		History:         []models.Turn{{Role: models.RoleModel, Text: "Welcome back to the tavern."}},
		LocationHistory: []string{"Tavern"},
	}
	return f.state.Clone(), nil
}

func play(t *testing.T, game *fakeGame, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	session := NewSession(game, strings.NewReader(input), &out, PlainRenderer, models.LanguageEnglish)
	err := session.Run(context.Background())
	return out.String(), err
}

func TestNewAdventure(t *testing.T) {
	game := &fakeGame{}
	out, err := play(t, game, "Ada\nrogue\n\n1\n/inventory\n/quest\n/map\n/quit\n")
	require.NoError(t, err)

	require.NotNil(t, game.started)
	assert.Equal(t, "Ada", game.started.Name)
	assert.Equal(t, "rogue", game.started.Class)
	assert.Equal(t, []string{"Open the chest"}, game.actions)

	assert.Contains(t, out, "CHRONICLE")
	assert.Contains(t, out, "You wake in a dusty crypt.")
	assert.Contains(t, out, "1. Open the chest")
	assert.Contains(t, out, "The chest creaks open.")
	assert.Contains(t, out, "gold coin")
	assert.Contains(t, out, "Current Quest: Find the gold coin")
	assert.Contains(t, out, "➤ 1. Dusty Crypt")
}

func TestResumeSavedGame(t *testing.T) {
	game := &fakeGame{saved: true}
	out, err := play(t, game, "y\n")
	require.NoError(t, err)

	assert.Nil(t, game.started)
	assert.Contains(t, out, "Welcome back to the tavern.")
}

func TestActionErrorIsShownAndLoopContinues(t *testing.T) {
	game := &fakeGame{actionErr: apperrors.NewThrottledError("quota", nil)}
	out, err := play(t, game, "\n\n\nlook around\nwait\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"look around", "wait"}, game.actions)
	assert.Equal(t, 2, strings.Count(out, "The spirits are exhausted"))
}

func TestResolveOutOfRangeNumberIsLiteral(t *testing.T) {
	game := &fakeGame{}
	_, err := play(t, game, "\n\n\n7\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, game.actions)
}

func TestEOFBeforeStart(t *testing.T) {
	_, err := play(t, &fakeGame{}, "")
	require.Error(t, err)
}
