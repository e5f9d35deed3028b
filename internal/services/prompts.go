package services

import (
	"fmt"
	"strings"
)

func buildMCQPrompt(topic, difficulty string) string {
	return fmt.Sprintf(`Generate a %s multiple-choice question about %s.

Return ONLY a JSON object with these exact fields:
- "question": a clear, specific question
- "options": an array of exactly 4 distinct possible answers
- "correct_answer": the option that is correct, copied exactly
- "explanation": 2-3 sentences on why the correct answer is right

Example:
{
  "question": "What is the time complexity of binary search?",
  "options": ["O(n)", "O(log n)", "O(n^2)", "O(1)"],
  "correct_answer": "O(log n)",
  "explanation": "Binary search halves the search space on every comparison, so it needs logarithmically many steps on a sorted array."
}`, difficulty, topic)
}

func buildFillBlankPrompt(topic, difficulty string) string {
	return fmt.Sprintf(`Generate a %s fill-in-the-blank question about %s.

Return ONLY a JSON object with these exact fields:
- "question": one sentence with a single ___ marking the blank
- "answer": the word or short phrase that fills the blank
- "explanation": 2-3 sentences on why this answer is correct

Example:
{
  "question": "The ___ scheduling algorithm runs the process with the shortest burst time first.",
  "answer": "SJF",
  "explanation": "Shortest Job First picks the process with the smallest execution time, which minimises average waiting time."
}`, difficulty, topic)
}

// buildRAGPrompt asks for a new question aimed at the mistakes in context.
func buildRAGPrompt(topic, difficulty string, context []string) string {
	return fmt.Sprintf(`You are a tutor writing a new multiple-choice question that helps a student learn from past mistakes.

The student is studying: %q.

Questions the student answered incorrectly before:
--- CONTEXT ---
%s
--- END CONTEXT ---

Write a new, conceptually similar question of %q difficulty that tests the principle behind these errors. Do not repeat a question from the context.

Return ONLY a JSON object with these exact fields:
- "question": a clear question targeting a weak area from the context
- "options": an array of exactly 4 distinct possible answers
- "correct_answer": the option that is correct, copied exactly
- "explanation": 2-3 sentences on why the correct answer is right`, topic, strings.Join(context, "\n\n"), difficulty)
}
