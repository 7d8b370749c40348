package llm_client

import "fmt"

// buildPrompt renders the six-section veterinary report prompt. Absent
// context values are substituted with literal placeholders so the model
// never sees an empty slot.
func buildPrompt(result, language string, temperature *float64, city *string) string {
	tempInfo := "not available"
	if temperature != nil {
		tempInfo = fmt.Sprintf("%.1f°C", *temperature)
	}
	locationInfo := "not specified"
	if city != nil && *city != "" {
		locationInfo = *city
	}

	return fmt.Sprintf(`You are a veterinary expert specializing in Lumpy Skin Disease and cattle health. Based on the provided data, generate a comprehensive report (approximately 600 words) covering these sections:

1. Prediction Summary (50-75 words):
   - State the ML and CNN model predictions clearly
   - Confidence level assessment
   - Initial risk evaluation based on location and climate

2. Clinical Observations (100-125 words):
   - Detailed analysis of visible symptoms or their absence
   - Skin condition assessment
   - General health indicators
   - Body condition scoring (if visible)
   - Any secondary symptoms or complications

3. Environmental Risk Analysis (100-125 words):
   - Location: %[1]s
   - Current Temperature: %[2]s
   - Vector activity potential
   - Seasonal disease patterns in this region
   - Climate-related stress factors
   - Local disease prevalence history

4. Differential Diagnosis (100-125 words):
   - Other possible conditions with similar presentations
   - Common cattle diseases in %[1]s
   - Season-specific health concerns
   - Age and breed-specific considerations
   - Stress-related conditions

5. Management Recommendations (150-175 words):
   A. Immediate Actions:
      - Isolation requirements (if any)
      - Monitoring parameters
      - Essential treatments

   B. Preventive Measures:
      - Vector control strategies
      - Environmental modifications
      - Vaccination schedules
      - Nutritional adjustments

   C. Long-term Management:
      - Herd health monitoring
      - Biosecurity measures
      - Record-keeping recommendations

6. Follow-up Protocol (50-75 words):
   - Monitoring timeline
   - Warning signs to watch for
   - When to seek veterinary consultation
   - Documentation requirements

Input Data:
%[3]s

IMPORTANT GUIDELINES:
1. Provide the report in %[4]s language
2. Maintain all six sections with their exact headings and don't mention no.of words in the headings or in the report
3. Include specific numbers, measurements, and timelines where applicable
4. Consider both individual animal and herd-level implications
5. Incorporate local weather patterns and regional disease prevalence
6. Provide actionable, practical recommendations
7. Use bullet points for clarity where appropriate
8. Include cost-effective solutions suitable for the region
9. Consider local veterinary resource availability
10. Address both immediate and long-term management strategies
11. Do not add any additional sections or explanatory text like "Here is the report in %[4]s language" or anything like that.
12. Provide the report in markdown format

Format each section clearly with headers and subheaders for easy reading. Use bullet points for lists and recommendations. Highlight critical information using bold text (**important text**).`,
		locationInfo, tempInfo, result, language)
}
