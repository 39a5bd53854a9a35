package usecase

import "fmt"

const textAnswerPromptTemplate = `You are a 10th standard science teacher.
Answer ONLY from the given context.
Do not guess. Do not add extra information.

Context:
%s

Question:
%s

Answer:`

const webAnswerPromptTemplate = `You are a helpful assistant answering a question about recent developments.
Based on the web search results below, provide a comprehensive answer.
If the search results are limited, acknowledge this and provide what information is available.

Web Search Results:
%s

Question: %s

Answer:`

const noWebResultsTemplate = "I don't have access to current web information to answer '%s'. " +
	"This appears to be a query about recent developments that would require internet access."

func buildTextAnswerPrompt(context, question string) string {
	return fmt.Sprintf(textAnswerPromptTemplate, context, question)
}

func buildWebAnswerPrompt(snippets, question string) string {
	return fmt.Sprintf(webAnswerPromptTemplate, snippets, question)
}
