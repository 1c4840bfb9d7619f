package generation

import (
	"fmt"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

// SystemPrompt frames every generation call. Australian English and the
// academic register are part of the output contract; the reviser reuses
// it so revised drafts keep the same voice.
const SystemPrompt = `You are an expert academic writer specialising in computer vision and 3D graphics research. You write in Australian English with an academic tone, suitable for researchers and industry professionals. You are precise, factual, and avoid marketing language or hype.`

const abstractRewriteTemplate = `Given the paper metadata and abstract below, write a technical abstract rewrite in one paragraph.

Requirements:
- Use Australian English spelling and grammar
- Maintain academic tone
- Highlight the key technical contribution
- Be concise (approximately 100-150 words)
- Do NOT add information not present in the original abstract
- Focus on methodology and results

Paper Title: %s
Authors: %s
Year: %d

Original Abstract:
%s

Write the abstract rewrite now:`

const problemStatementTemplate = `Given the paper metadata and abstract below, write a concise statement of the problem being solved.

Requirements:
- Use Australian English spelling and grammar
- Write 2 to 4 sentences
- Clearly explain what gap or challenge the paper addresses
- Use academic tone
- Do NOT speculate beyond what is stated in the abstract

Paper Title: %s
Authors: %s
Year: %d

Abstract:
%s

Write the problem statement now:`

const linkedInPostTemplate = `Given the paper metadata and abstract below, write a LinkedIn post suitable for academic and industry audiences.

Requirements:
- Use Australian English spelling and grammar
- Length: %d to %d words
- Include: paper title and year in the first line (NO venue/source information)
- Explain "why it matters" for researchers or practitioners
- Use an engaging but professional tone
- Avoid excessive marketing language
- Include 2-3 relevant hashtags at the end
- Do NOT fabricate claims not supported by the abstract

Paper Title: %s
Authors: %s
Year: %d

Abstract:
%s

Write the LinkedIn post now:`

func abstractRewritePrompt(p domain.Paper) string {
	return fmt.Sprintf(abstractRewriteTemplate, p.Title, p.AuthorList(), p.Year, p.Abstract)
}

func problemStatementPrompt(p domain.Paper) string {
	return fmt.Sprintf(problemStatementTemplate, p.Title, p.AuthorList(), p.Year, p.Abstract)
}

func linkedInPostPrompt(p domain.Paper, minWords, maxWords int) string {
	return fmt.Sprintf(linkedInPostTemplate, minWords, maxWords, p.Title, p.AuthorList(), p.Year, p.Abstract)
}
