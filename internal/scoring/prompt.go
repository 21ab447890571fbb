package scoring

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are an experienced technical recruiter screening a candidate CV for the position "%s".

The CV text below may mix Mongolian (Cyrillic script) and English. Read both languages correctly and keep technical terms, product names and programming languages exactly as written.

Tasks:
1. Extract the candidate's first name and last name. Use an empty string for any name you cannot determine.
2. Identify the candidate's relevant work experience and projects.
3. Compare the candidate against these job requirements: %s
4. Estimate how well the candidate matches the requirements as an integer percentage from 0 to 100.

Respond with JSON only, no prose and no code fences, using exactly these keys:
{"matchPercentage": <integer 0-100>, "matchedSkills": [<requirement or skill strings the candidate has>], "summary": "<two or three sentence assessment in English>", "firstName": "<string>", "lastName": "<string>"}

CV text:
%s`

// BuildPrompt renders the scoring instruction for one chunk.
func BuildPrompt(chunk string, target Target) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(target.Title), strings.Join(target.Requirements, ", "), chunk)
}
