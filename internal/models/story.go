// internal/models/story.go
package models

import (
	"time"
)

// Role 对话轮次的发言方
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// NPC is a character the provider reports as present in the scene.
type NPC struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
}

// StoryState is the structured payload a provider returns for one turn.
// Every field is required on the wire; a missing field is a parse error.
type StoryState struct {
	Narrative         string   `json:"narrative" mapstructure:"narrative"`
	VisualDescription string   `json:"visualDescription" mapstructure:"visualDescription"` // always English
	Inventory         []string `json:"inventory" mapstructure:"inventory"`                 // narrative order, duplicates allowed
	CurrentQuest      string   `json:"currentQuest" mapstructure:"currentQuest"`           // empty = none
	LocationName      string   `json:"locationName" mapstructure:"locationName"`
	SuggestedActions  []string `json:"suggestedActions" mapstructure:"suggestedActions"`
	ActiveCharacters  []NPC    `json:"activeCharacters" mapstructure:"activeCharacters"`
}

// Turn 会话历史中的一轮，只包含一段文本
type Turn struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Text        string    `json:"text"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ImagePrompt string    `json:"imagePrompt,omitempty"` // kept for regeneration context
	Timestamp   time.Time `json:"timestamp"`
}

// Character 玩家在开局时创建的角色
type Character struct {
	Name       string `json:"name"`
	Class      string `json:"class"`
	Appearance string `json:"appearance"`
}

// GameState 单个会话的完整状态
type GameState struct {
	Inventory        []string   `json:"inventory"`
	CurrentQuest     string     `json:"currentQuest"`
	History          []Turn     `json:"history"`
	IsGenerating     bool       `json:"isGenerating"`
	GameStarted      bool       `json:"gameStarted"`
	Character        *Character `json:"character,omitempty"`
	LocationHistory  []string   `json:"locationHistory"`
	ActiveCharacters []NPC      `json:"activeCharacters"`
}

// NewGameState returns the empty state a fresh session starts from.
func NewGameState() *GameState {
	return &GameState{
		Inventory:        []string{},
		History:          []Turn{},
		LocationHistory:  []string{},
		ActiveCharacters: []NPC{},
	}
}

// Clone returns a deep copy so callers never share slices with the session.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	c := *g
	c.Inventory = append([]string{}, g.Inventory...)
	c.History = append([]Turn{}, g.History...)
	c.LocationHistory = append([]string{}, g.LocationHistory...)
	c.ActiveCharacters = append([]NPC{}, g.ActiveCharacters...)
	if g.Character != nil {
		ch := *g.Character
		c.Character = &ch
	}
	return &c
}

// Snapshot is the opaque autosave blob. Only shape-checked on restore.
type Snapshot struct {
	GameState        *GameState `json:"gameState"`
	SuggestedActions []string   `json:"suggestedActions"`
	Timestamp        int64      `json:"timestamp"` // unix millis
}
