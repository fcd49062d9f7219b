package pipeline

import (
	"fmt"
	"strings"
)

const reviewInstructions = `
Analyze the user's data pulled from a har file to identify potential errors, performance bottlenecks, and other notable problems. The user action recorded was: %s.

Please provide a summary report focusing on:
1.  **Load failures and errors:** Highlight any requests with a status code outside the 200–399 range (e.g., 404 Not Found, 500 Internal Server Error, 403 Forbidden). For any errors, explain the likely cause and impact.
2.  **Redirects**: Highlight any redirects where followup requests were followed with a 400 to 500 code
3.  **Performance bottlenecks:**
    *   Identify the slowest-loading requests, particularly those with long "Waiting" (TTFB) or "Blocked" times.
    *   Point out any exceptionally large file transfers (e.g., large images, JavaScript bundles).
    *   Flag any excessive or unexpected redirect chains.
4.  **Overall slowness:** Provide an assessment of the overall page load performance. Consider the number of requests and the total time taken.
5.  **Security considerations:** Note any requests made over unencrypted HTTP instead of HTTPS.
6.  **CDN issues:** Identify any links coming from a CDN that may have resulted in error codes or long load times. Provide details about these entries.
7.  **Suggestions for improvement:** Based on the findings, provide specific, actionable recommendations (e.g., compress resources, optimize server response, investigate third-party scripts).
`

// InstructionPrefix renders the review instructions with the user's
// recorded actions interpolated verbatim.
func InstructionPrefix(userActions string) string {
	return fmt.Sprintf(reviewInstructions, strings.TrimSpace(userActions))
}
