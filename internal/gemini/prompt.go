package gemini

import (
	"fmt"

	"github.com/lehigh-university-libraries/humandex/internal/models"
)

// buildAnalysisPrompt returns the instruction text sent alongside the photo.
func buildAnalysisPrompt(tone models.Tone) string {
	var persona, speciesRule, typesRule, movesRule, descriptionRule string

	switch tone {
	case models.ToneFaithful:
		persona = "Behave like an official creature encyclopedia, staying faithful to the established world of pocket monsters."
		speciesRule = `a species name in the style of the franchise that captures the person's features (for example "Salaryman", "Otaku", "Schoolgirl")`
		typesRule = "types judged from appearance, chosen only from the 18 canonical types (for example \"Normal\", \"Fighting\", \"Psychic\")"
		movesRule = "four moves the creature learns: existing moves, or names that sound like them"
		descriptionRule = "an objective, ecological field note about the person in the photo"
	case models.ToneNormal:
		persona = "Behave like a standard creature encyclopedia."
		speciesRule = "a species name based on the person's appearance"
		typesRule = "types judged from appearance and atmosphere"
		movesRule = "four moves the creature learns, named after things this person would plausibly do"
		descriptionRule = "a description that captures the person's characteristics"
	default:
		persona = "Behave like an extremely harsh and sarcastic creature encyclopedia."
		speciesRule = `a species name based on the person's appearance that is a little funny or unflattering (for example "Eternal Junior Clerk", "Caffeine Addict")`
		typesRule = "types judged from appearance and atmosphere (for example \"Normal\", \"Poison\", \"Ghost\", \"Overworked\"); invented types are allowed"
		movesRule = "four moves the creature learns, with mundane or pathetic names (for example \"Polite Smile\", \"Shift Blame\", \"Stress Eating\")"
		descriptionRule = "a short description of the person in the photo containing biting sarcasm or insults"
	}

	return fmt.Sprintf(`Analyze this photo as if the person in it were a "human creature".
%s

Generate JSON following these rules:
1. speciesName: %s.
2. types: %s. At least one type.
3. stats: base stats (hp, attack, defense, spAtk, spDef, speed), each between 0 and 255, decided from how the person looks.
4. moves: %s. Exactly four.
5. description: %s. At most 100 characters.

Respond with the JSON object only.`, persona, speciesRule, typesRule, movesRule, descriptionRule)
}

// buildVoicePrompt wraps the text to be read out in the narration instruction.
func buildVoicePrompt(text string) string {
	return fmt.Sprintf("Read the following text aloud in a cold, mechanical voice with no emotion at all.\n\n\"%s\"", text)
}
