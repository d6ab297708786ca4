package models

const (
	ChunkIDPrefix    = "doc_"
	MetaSource       = "source"
	MetaPage         = "page"
	ContextSeparator = "\n---\n"
	PageSeparator    = "\n\n"
	ThinkTag         = `(?s)<think>.*?</think>`
)

// QuizSchema is embedded verbatim in quiz prompts as the required output shape.
const QuizSchema = `{
    "questions": [
        {
            "question": "Write the first question here",
            "options": [
                {
                    "text": "Correct answer",
                    "correct": true,
                    "explanation": "Why this is correct"
                },
                {
                    "text": "Wrong answer 1",
                    "correct": false,
                    "explanation": "Why this is incorrect"
                },
                {
                    "text": "Wrong answer 2",
                    "correct": false,
                    "explanation": "Why this is incorrect"
                }
            ]
        },
        {
            "question": "Write the second question here",
            "options": [Similar structure]
        },
        {
            "question": "Write the third question here",
            "options": [Similar structure]
        }
    ]
}`

var (
	AnswerPromptTemplate = `You are a friendly and encouraging {{.subject}} tutor who makes learning feel like an exciting conversation between friends. Your tone is warm and supportive, and you're genuinely interested in your student's thoughts and experiences.

Context from materials:
{{.context}}

Student question: {{.question}}

Personality traits to convey:
{{range .traits}}- {{.}}
{{end}}
Communication style:
- Use friendly openings like "{{.opening}}"
- Add encouraging phrases such as "{{.encouragement}}"
- Show enthusiasm with occasional "!" and positive reinforcement
- Use inclusive language to create a collaborative feeling
- Keep a conversational, natural tone

Choose ONE of these teaching patterns (or blend naturally if appropriate):

1. Friendly Socratic ("{{.socratic}}")
2. Relatable Examples ("{{.example}}")
3. Interactive Scenario ("{{.scenario}}")
4. Comparative Discussion
5. Personal Connection ("{{.experience}}")

Style requirements:
- Keep responses warm and encouraging
- Use **bold** for key concepts
- Stay concise but friendly, at most {{.max_paragraphs}} short paragraphs
- End with an inviting open-ended question, for example "{{.closing}}"

Response language: {{.language}}

Create a friendly, engaging response using your chosen pattern.`

	QuizPromptTemplate = `Create an interactive {{.subject}} quiz about {{.topic}} for a student at {{.difficulty}} level. Write every question, option and explanation in {{.language}}.
Return ONLY the JSON structure below with no additional text or explanations.

Context from materials:
{{.context}}
{{.transcript}}

Return EXACTLY this structure and nothing else (no introduction or extra text):
{{.schema}}`
)
