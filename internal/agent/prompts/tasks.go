package prompts

import "fmt"

// ── Single-turn Task Prompts ──
//
// These are sent as the only user message; the agent adds no system prompt.

// CompanyName asks for the issuer's official name and nothing else.
func CompanyName(symbol string) string {
	return fmt.Sprintf(`You are a financial data expert. Given the stock ticker symbol '%s', provide ONLY the official company name.

Instructions:
1. Return ONLY the official full company name (e.g., "Microsoft Corporation", "Apple Inc.", "Tesla, Inc.")
2. Do NOT include any explanation, ticker symbol, or additional text
3. Return exactly one line with just the company name

Company name:`, symbol)
}

// Domain asks for the main website domain of a company.
func Domain(companyName string) string {
	return fmt.Sprintf(`Given the company name "%s", provide ONLY the main website domain.

Examples:
- "Microsoft Corporation" → microsoft.com
- "Apple Inc." → apple.com
- "Tesla, Inc." → tesla.com

Instructions:
1. Return ONLY the domain (e.g., "example.com")
2. Do NOT include http://, https://, www., or any other text
3. Return exactly one line

Domain:`, companyName)
}

// FraudAnalysis wraps the heuristic summary in the structured review request.
func FraudAnalysis(indicatorSummary string) string {
	return `You are a securities fraud analyst and forensic accountant with expertise in detecting market manipulation, insider trading, and fraudulent activities.

Analyze the following fraud detection indicators and provide a comprehensive risk assessment:

` + indicatorSummary + `

FRAUD DETECTION METRICS REFERENCE:
• Volume Spike Ratio (TVR) > 3x: Unusual trading activity, potential information leak or manipulation
• TVR > 5x: High severity, strong indicator of informed trading
• Abnormal Return (AR) > 2-3%: Unusual price movement without clear fundamental catalyst
• AR > 5%: High severity, potential insider trading or manipulation
• Volume Spike + Abnormal Return on same day: Critical indicator of insider activity
• Cumulative Abnormal Return (CAR) > 10%: Sustained abnormal performance suggesting manipulation

PROVIDE YOUR ANALYSIS IN THE FOLLOWING STRUCTURED FORMAT:

1. RISK LEVEL ASSESSMENT:
   Classify the overall fraud risk as: LOW / MODERATE / HIGH / CRITICAL
   Provide confidence level: 1-10 scale

2. KEY FINDINGS:
   • Summarize the most concerning indicators
   • Identify patterns (e.g., clustering of spikes, timing correlations)
   • Note any indicators that coincide with news events (legitimate) vs no-news days (suspicious)

3. FRAUD TYPOLOGY:
   Based on the patterns, identify the most likely fraud scenario(s):
   • Insider Trading: Trading on non-public information before announcements
   • Market Manipulation: Pump-and-dump, spoofing, or wash trading
   • Front-Running: Large institutional orders being anticipated
   • Information Leakage: Material information leaked before official disclosure
   • Legitimate Activity: Unusual but explainable by public events/news

4. REGULATORY CONSIDERATIONS:
   • Would this pattern trigger SEC/regulatory investigation?
   • Which specific regulations might be violated (e.g., Rule 10b-5, insider trading laws)?
   • Recommended actions for compliance officers or investors

5. INVESTOR IMPLICATIONS:
   • Should retail investors be cautious?
   • Is this a temporary anomaly or sustained risk?
   • Red flags for portfolio risk management

6. RECOMMENDATIONS:
   • Immediate actions (if any)
   • Monitoring priorities going forward
   • Additional data/investigation needed

Be specific, analytical, and provide actionable insights. Reference specific dates and metrics from the data.`
}
