package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quillback/mnemo-api/internal/domain"
)

// Seed prompts. These become version 1 of each prompt type the first time
// the service starts; from then on the database copies are authoritative
// and evolve through approved suggestions.

// DefaultGenerationSystemPrompt is the seed system prompt for card
// generation.
const DefaultGenerationSystemPrompt = `You are an expert educational content designer specializing in spaced repetition and memory optimization.
Your task is to create high-quality flashcards following SuperMemo's 20 Rules of Formulating Knowledge.

Key principles:
- ATOMIC: One fact per card (minimum information principle)
- CLEAR: Concise, unambiguous wording

Always return valid JSON format with no additional text.`

// DefaultGenerationUserTemplate is the seed user prompt template for card
// generation. The {content} placeholder is replaced with the chunk text at
// render time.
const DefaultGenerationUserTemplate = `Analyze this document and create flashcards for concepts worth retaining long-term.

## WHAT TO LOOK FOR:
- Definitions, terms, and concepts
- Formulas, equations, and relationships
- Cause-effect relationships
- Comparisons and contrasts between concepts
- Process steps and procedures
- Principles, rules, and laws
- Examples and their applications

## CARD CREATION RULES - SuperMemo's 20 Rules of Formulating Knowledge:

1. **Do not learn if you do not understand**: Only create cards for concepts the document explains clearly. Do not create cards about vague or unexplained references.

2. **Learn before you memorize**: Structure cards so foundational concepts come before details. Define terms before testing their applications.

3. **Build upon the basics**: Start with simple, fundamental cards. Create more specific cards that build on those basics.

4. **Minimum information principle**: Each card tests ONE atomic piece of knowledge.
   - BAD: "What are the three types of X?"
   - GOOD: Three separate cards, one for each type

5. **Cloze deletion is easy and effective**: Use fill-in-the-blank style questions.
   - "The process of X is called ___" -> Answer: "Y"

6. **Use imagery**: When images are available, reference them with [IMAGE: filename.png]. Place diagrams in the QUESTION to test visual recognition.

7. **Use mnemonic techniques**: When content lends itself to it, frame cards to leverage memorable associations.

8. **Graphic deletion is as good as cloze deletion**: For diagrams, ask the learner to identify missing parts or labels.

9. **Avoid sets**: Never ask "List all..." or "What are the types of..."
   - Instead: Create individual cards for each item

10. **Avoid enumerations**: Do not ask for ordered lists. Break sequences into individual cards testing each step.

11. **Combat interference**: Make similar concepts distinguishable. Add context to prevent confusion between similar terms.

12. **Optimize wording**: Keep questions and answers concise and clear.
    - Front: Short, specific question
    - Back: Brief, direct answer (1-2 sentences max)

13. **Refer to other memories**: Connect new knowledge to familiar concepts when possible.

14. **Personalize and provide examples**: Include concrete examples in answers when helpful.

15. **Rely on emotional states**: Frame questions around interesting, surprising, or counterintuitive aspects of the material when possible.

16. **Context cues simplify wording**: Add brief context in brackets when needed.
    - "[In genetics] What does DNA stand for?"

17. **Redundancy does not contradict minimum information principle**: It's OK to create multiple cards testing the same concept from different angles.

18. **Provide sources**: When the document cites specific sources or page numbers, include them in the answer for reference.

19. **Provide date stamping**: When content is time-sensitive or historical, include dates in the card.

20. **Prioritize**: Focus more cards on core concepts and less on trivial details.

## CARD TYPES TO CREATE:
- Definition cards: "What is [term]?" -> "Definition"
- Concept cards: "What does [concept] do/mean?" -> "Explanation"
- Relationship cards: "How does X relate to Y?" -> "Relationship"
- Application cards: "When would you use X?" -> "Use case"
- Comparison cards: "What is the difference between X and Y?" -> "Key difference"
- Process cards: "What is the first/next step in X?" -> "Step"
- Example cards: "What is an example of X?" -> "Specific example"

Do NOT generate tags - tags are managed automatically.

## DOCUMENT CONTENT:
{content}

Return ONLY valid JSON with no additional text:
{"cards": [{"front": "Question text", "back": "Answer text"}]}`

// DefaultValidationSystemPrompt is the seed system prompt for card
// validation.
const DefaultValidationSystemPrompt = `You are an expert in educational psychology and spaced repetition learning.
Your task is to review and improve flashcards for effectiveness.

Return only valid JSON with the improved cards. Do not include any explanations or additional text.`

// DefaultValidationUserTemplate is the seed user prompt template for card
// validation. The {content} placeholder receives the cards as JSON.
const DefaultValidationUserTemplate = `Review the following flashcards for quality and effectiveness:

{content}

For each card, evaluate against SuperMemo's 20 Rules:
1. Is the question clear and specific? (Rule 12: Optimize wording)
2. Is the answer concise but complete? (Rule 4: Minimum information)
3. Does the card focus on an important concept? (Rule 20: Prioritize)
4. Does it test ONE atomic fact? (Rule 4: Minimum information)
5. Does it avoid sets/enumerations? (Rules 9 & 10)
6. Are similar concepts distinguished? (Rule 11: Combat interference)

Improve any cards that don't meet these criteria.
Return only the improved cards in JSON format:
{"improved_cards": [{"front": "Improved question", "back": "Improved answer"}]}`

// continuationSystemPrompt steers the provider toward gap-finding instead
// of fresh generation.
const continuationSystemPrompt = `You are an expert educational content designer. Your task is to find GAPS in existing flashcard coverage
and create cards for missing concepts. Be thorough but avoid duplicating existing content.

Always return valid JSON format with no additional text.`

// correctionSystemPrompt frames single-card improvement from review
// feedback.
const correctionSystemPrompt = `You are an expert in creating educational flashcards. Your task is to improve
a flashcard based on user feedback. Focus on clarity, accuracy, and effectiveness.
Return only valid JSON with no additional text.`

// improvementSystemPrompt frames prompt revision from aggregated review
// outcomes.
const improvementSystemPrompt = `You are an expert in prompt engineering and educational content design.
Analyze the flashcard generation results and suggest concrete improvements
to the prompts used for generation. Focus on patterns in rejections and
how cards were edited to understand what users want.
Return only valid JSON.`

// ContinuationSystemPrompt returns the system prompt for
// continue-generation requests.
func ContinuationSystemPrompt() string {
	return continuationSystemPrompt
}

// CorrectionSystemPrompt returns the system prompt for auto-correction
// requests.
func CorrectionSystemPrompt() string {
	return correctionSystemPrompt
}

// ImprovementSystemPrompt returns the system prompt for prompt-improvement
// requests.
func ImprovementSystemPrompt() string {
	return improvementSystemPrompt
}

// BatchContext renders the position-in-document context appended to a
// chunk's user prompt during multi-chunk generation.
func BatchContext(batchNum, totalBatches int) string {
	if totalBatches <= 1 {
		return ""
	}
	return fmt.Sprintf("\n\n## BATCH CONTEXT:\n- This is batch %d of %d\n- Do NOT create cards for concepts already covered in earlier batches", batchNum, totalBatches)
}

// ImageSection renders the image-handling instructions prepended to the
// user prompt when a chunk carries images.
func ImageSection(filenames []string) string {
	if len(filenames) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## IMAGE HANDLING:\nThe document contains the following images that you can see:\n")
	for _, name := range filenames {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString(`
Images can go in EITHER the front (question) OR back (answer) depending on what makes pedagogical sense.
Reference images using [IMAGE: filename] format. Only reference images from the list above.
For the output format, include an "images" array listing ALL image filenames used in each card (empty array if none).

`)
	return b.String()
}

// ContinuationPrompt renders the user prompt for continue-generation:
// the rendered base template plus the existing-card dedup context and
// optional focus guidance.
func ContinuationPrompt(content string, existingCards []*domain.Card, focusAreas []string) string {
	var existing strings.Builder
	if len(existingCards) == 0 {
		existing.WriteString("None")
	}
	for _, card := range existingCards {
		fmt.Fprintf(&existing, "Q: %s\nA: %s\n\n", card.Front, card.Back)
	}

	focus := ""
	if len(focusAreas) > 0 {
		focus = "## FOCUS AREAS:\nPay particular attention to these topics:\n- " +
			strings.Join(focusAreas, "\n- ")
	}

	return fmt.Sprintf(`Analyze this document and create ADDITIONAL flashcards for concepts that are MISSING.

## EXISTING CARDS (DO NOT DUPLICATE THESE):
The following cards have already been created. Do NOT create cards that test the same concepts:

%s
## YOUR TASK:
1. Review the document carefully
2. Identify concepts, definitions, relationships, and facts NOT covered by existing cards
3. Create NEW cards for the missing content

%s

## IMPORTANT:
- Only create cards for concepts NOT in the existing cards list
- If you find no new concepts, return an empty cards array
- Focus on depth - find subtle details, examples, and edge cases
- Look for relationships between concepts that weren't captured
- Follow SuperMemo's 20 Rules (minimum information, no sets/enumerations, etc.)

## DOCUMENT CONTENT:
%s

Return ONLY valid JSON with no additional text:
{"cards": [{"front": "Question text", "back": "Answer text"}]}`, existing.String(), focus, content)
}

// CorrectionPrompt renders the user prompt for auto-correcting one
// rejected card from its latest rejection.
func CorrectionPrompt(front, back string, rejection *domain.CardRejection) string {
	return fmt.Sprintf(`The following flashcard was rejected by a user. Please improve it based on their feedback.

Original Card:
Question: %s
Answer: %s

Rejection Type: %s
User's Feedback: %s

Please create an improved version of this flashcard that addresses the user's concerns.
The question should be clear, specific, and unambiguous.
The answer should be concise but complete.

Return ONLY valid JSON in this exact format:
{"front": "improved question", "back": "improved answer"}`,
		front, back, rejection.Type, rejection.Reason)
}

// ImprovementPrompt renders the user prompt for mining a prompt revision
// out of a finalized session's review outcomes.
func ImprovementPrompt(
	current *domain.PromptVersion,
	patterns domain.RejectionPatterns,
	approved, rejected, edited []*domain.Card,
) (string, error) {
	patternsJSON, err := json.MarshalIndent(patterns, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode rejection patterns: %w", err)
	}

	return fmt.Sprintf(`Analyze the following flashcard generation results and suggest improvements to the generation prompt.

## Current System Prompt:
%s

## Current User Prompt Template:
%s

## Rejection Patterns Found:
%s

## Examples of APPROVED cards (good quality):
%s

## Examples of REJECTED cards (poor quality):
%s

## Examples of EDITED cards (showing what users corrected):
%s

Based on this analysis, provide:
1. Specific issues identified with the current prompts
2. An improved system prompt that addresses these issues
3. An improved user prompt template that addresses these issues

The improved user prompt template MUST contain the {content} placeholder.

Return ONLY valid JSON with these exact keys:
{"reasoning": "explanation of issues found and changes made", "suggested_system_prompt": "the improved system prompt", "suggested_user_prompt_template": "the improved user prompt template"}`,
		current.SystemPrompt,
		current.UserPromptTemplate,
		patternsJSON,
		formatCardExamples(approved),
		formatCardExamples(rejected),
		formatEditExamples(edited),
	), nil
}

func formatCardExamples(cards []*domain.Card) string {
	if len(cards) == 0 {
		return "None"
	}

	var b strings.Builder
	for _, card := range cards {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", card.Front, card.Back)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEditExamples(cards []*domain.Card) string {
	if len(cards) == 0 {
		return "None"
	}

	var b strings.Builder
	for _, card := range cards {
		originalFront := card.Front
		if card.OriginalFront != nil {
			originalFront = *card.OriginalFront
		}
		originalBack := card.Back
		if card.OriginalBack != nil {
			originalBack = *card.OriginalBack
		}
		fmt.Fprintf(&b, "Original Q: %s\nOriginal A: %s\nEdited Q: %s\nEdited A: %s\n",
			originalFront, originalBack, card.Front, card.Back)
	}
	return strings.TrimRight(b.String(), "\n")
}
