// internal/llm/prompt.go
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Corphon/Chronicle/internal/models"
)

// LanguageRule 返回输出语言规则
func LanguageRule(lang models.Language) string {
	if lang == models.LanguageRussian {
		return "OUTPUT RULE: The 'narrative', 'inventory', 'currentQuest', 'locationName', 'suggestedActions' and 'activeCharacters' properties MUST be in Russian. The 'visualDescription' MUST be in English."
	}
	return "OUTPUT RULE: All content must be in English."
}

// BuildSystemInstruction renders the game master ruleset for one turn,
// embedding the current inventory and quest.
func BuildSystemInstruction(inventory []string, quest string, lang models.Language) string {
	if inventory == nil {
		inventory = []string{}
	}
	invJSON, err := json.Marshal(inventory)
	if err != nil {
		invJSON = []byte("[]")
	}

	rules := []string{
		"Output valid JSON matching the schema.",
		"Track the 'inventory' and 'currentQuest' meticulously. If the user picks up an item, add it. If they use or lose it, remove it. Update the quest as the plot evolves.",
		"Keep the 'narrative' engaging, roughly 100-200 words per turn.",
		"The 'visualDescription' must be in English and suitable for an art generator. Focus on the physical scene and the protagonist (if present).",
		"Track the 'locationName'. Change it only when the player moves to a distinct new area. List the characters present in the scene in 'activeCharacters'.",
		fmt.Sprintf("Current Inventory: %s.", invJSON),
		fmt.Sprintf("Current Quest: %q.", quest),
		"If this is the first turn, propose a starting quest, location, and empty inventory (or basic starter gear).",
		LanguageRule(lang),
	}

	var b strings.Builder
	b.WriteString("You are an advanced Dungeon Master for an immersive, text-based Role Playing Game.\n")
	b.WriteString("Your goal is to weave an infinite, evolving story based on the user's choices.\n\n")
	b.WriteString("RULES:\n")
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	return b.String()
}
