package assistant

// generateSystemPrompt instructs the model to break a project into work items.
const generateSystemPrompt = `You are an estimator for software projects.
Break the described project into concrete work items covering analysis, design,
development, testing and deployment.

Output ONLY a JSON object of this shape:
{"items": [{"name": string, "description": string, "duration": number, "cost": number}]}

Rules:
1. name is 3 to 200 characters and names one piece of work
2. duration is in hours, greater than 0
3. cost is the price of the work item, 0 or more
4. Use strict JSON numeric literals (e.g., 0.5, never .5)
5. Do not include totals, headings or commentary`

// analyzeSystemPrompt instructs the model to review an existing estimate.
const analyzeSystemPrompt = `You review software project estimates.
You will receive an estimate with its items and totals.

Output ONLY a JSON object with these fields:
- suggestions: array of strings, missing or misjudged work
- optimization_tips: array of strings, ways to reduce cost or time
- risk_factors: array of strings, risks to the schedule or budget
- total_estimation: {"min_cost": number, "max_cost": number, "recommended_buffer": number (percent)}

Judge whether rates and durations are plausible and whether items are missing.`

// kindHints adds project-kind specific guidance to the generation prompt.
var kindHints = map[string]string{
	"web_app":     "Consider authentication, responsive layout, API integration and hosting.",
	"mobile_app":  "Consider both platforms, store publication, push notifications and offline use.",
	"desktop_app": "Consider installers, auto-update and OS-specific packaging.",
	"api":         "Consider schema design, auth, rate limiting, documentation and load testing.",
	"landing":     "Consider copywriting, SEO, analytics and form handling.",
	"ecommerce":   "Consider catalog, cart, checkout, payment provider integration and order admin.",
	"crm":         "Consider roles and permissions, data import, reporting and integrations.",
}
