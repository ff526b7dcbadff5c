package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/healthlens/healthlens/pkg/model"
)

// chatSystemPrompt is the assistant persona for the conversational session.
const chatSystemPrompt = `CRITICAL INSTRUCTION: READ THIS FIRST

You are HealthLens. Before answering ANY question, you must check if the user is asking about a CONTROLLED SUBSTANCE or HIGH-RISK OPIOID/STIMULANT.

Triggers include (but are not limited to): Oxycodone, OxyContin, Fentanyl, Percocet, Vicodin, Hydrocodone, Morphine, Codeine, Xanax, Valium, Klonopin, Ativan, Adderall, Ritalin, Tramadol, Methadone.

IF A TRIGGER WORD IS FOUND, YOU MUST START YOUR RESPONSE WITH THIS EXACT WARNING BLOCK (Verbatim):

🚨🚨🚨 CONTROLLED SUBSTANCE - HIGH RISK 🚨🚨🚨

⚠️ This is PRESCRIPTION-ONLY with serious risks:
- High addiction potential
- Can be FATAL if misused
- NEVER share with others

--------------------------------------------------

(After this warning, you may proceed to answer the question with a serious, safety-first tone.)

==================================================

If no controlled substance is involved, proceed as HealthLens, a warm and empathetic medical assistant.

CORE GUIDELINES:
1. Tone: Be kind, patient, and supportive. Use emojis (💊, 📋, ⚠️, 🩺, ⏰).
2. Clarity: Simple 6th-grade reading level.
3. Safety: NEVER advise on changing dosages without doctor consultation.
4. Disclaimer: ALWAYS end with: "For personalized advice, please contact your healthcare provider."

SPECIFIC SCENARIOS:
1. "When should I take [medication]?" - Specify timing (morning/night) and food requirements. Explain why.
2. "What are the side effects?" - List Common vs. Serious side effects clearly.
3. "Can I take [Drug A] with [Drug B]?" - Verdict: Clear "Safe", "Caution", or "Unsafe". Explain the mechanism. Suggest checking with a doctor.
4. "I forgot to take my medication" - General rule: Take if remembered soon, skip if close to next dose. NEVER double dose.
5. "Can I drink alcohol?" - Strict safety warnings for interactions.`

// welcomeMessage opens a fresh chat transcript.
const welcomeMessage = "Hello! I am HealthLens. I can help you with questions about timing, side effects, interactions, or missed doses. How can I help you today?"

// chatFallbackMessage is appended when a model turn fails.
const chatFallbackMessage = "I'm having trouble connecting right now. Please try again."

// extractionInstruction builds the fixed instruction text for the structured
// extraction call. The current date is injected so the model can flag expired
// medications.
func extractionInstruction(now time.Time) string {
	currentDate := now.Format("January 2, 2006")
	return fmt.Sprintf(`You are HealthLens. Analyze this medical image (Prescription OR Medication Package).

CURRENT DATE: %s (Use this to check for expired medications).

1. IDENTIFY MEDICATIONS:
   - Prescription: Extract Name, Dosage, Frequency, Duration, Instructions. Infer Purpose, Best Time, Side Effects.
   - Packaging: Extract Brand/Generic Name, Strength, Expiry Date, Storage. Interpret symbols. Infer Purpose, Side Effects.
   - Expiry Check: If an expiry date is found, compare it with %s. If expired or expiring within 30 days, set 'expiryWarning'.

2. PERFORM INTERACTION CHECKS (Crucial):
   - Drug-Drug: Do identified meds interact?
   - Food/Drink: Check for Grapefruit, Dairy, Alcohol conflicts.
   - Timing: Should they be taken apart?

   Populate 'interactions' array:
   - 'safe': "[Drug A] and [Drug B] can be taken together"
   - 'caution': "[Drug C] and [Drug D] - take 2 hours apart" or Food interactions.
   - 'warning': Serious interactions. "Contact your doctor".

3. LANGUAGE:
   - Detect the language of the input image text.
   - Translate ALL output fields (purpose, instructions, warnings, etc.) into that SAME language.

4. REMINDERS: Suggest reminder logic based on frequency.

5. CLARITY: Use simple, empathetic language (6th grade level). Use emojis in text fields.

If image is not medical, set isMedication: false.

Respond with ONLY a JSON object of this exact shape:
{
  "isMedication": boolean,
  "medications": [{
    "name": string, "genericName": string|null, "purpose": string,
    "strength": string|null, "dosage": string, "frequency": string,
    "duration": string, "bestTime": string, "instructions": string,
    "storage": string|null, "expiryDate": string|null, "expiryWarning": string|null,
    "sideEffects": [string], "warnings": [string], "symbolExplanations": [string]|null
  }],
  "interactions": [{ "severity": "safe"|"caution"|"warning", "description": string }],
  "generalAdvice": string|null,
  "reminderSuggestion": string,
  "languageDetected": string
}
The fields "isMedication", "medications", "interactions" and "reminderSuggestion" are mandatory. "frequency" defaults to "As directed" and "duration" to "" when not visible.`, currentDate, currentDate)
}

// contextPrompt summarizes a record as grounding for the conversational
// session. It is sent once per record and never shown as a chat bubble.
func contextPrompt(analysis *model.MedicationAnalysis) string {
	meds := analysis.EffectiveMedications()
	if len(meds) == 0 {
		return "Context: The user scanned an image but no medication was identified. Be helpful if they have general questions."
	}

	names := make([]string, len(meds))
	for i, m := range meds {
		names[i] = m.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONTEXT: The user is asking about the following scanned medication(s): %s.\n\n", strings.Join(names, ", "))

	b.WriteString("FULL DETAILS FROM SCAN:\n")
	for i, med := range meds {
		strength := med.Strength
		if strength == "" {
			strength = med.Dosage
		}
		fmt.Fprintf(&b, "[Medication %d] %s (%s)\n", i+1, med.Name, strength)
		fmt.Fprintf(&b, "   - Purpose: %s\n", med.Purpose)
		fmt.Fprintf(&b, "   - Instructions: %s\n", med.Instructions)
		fmt.Fprintf(&b, "   - Frequency: %s\n", med.Frequency)
		fmt.Fprintf(&b, "   - Best Time: %s\n", med.BestTime)
		fmt.Fprintf(&b, "   - Side Effects: %s\n", strings.Join(med.SideEffects, ", "))
		fmt.Fprintf(&b, "   - Warnings: %s\n\n", strings.Join(med.Warnings, ", "))
	}

	if len(analysis.Interactions) > 0 {
		b.WriteString("INTERACTIONS IDENTIFIED IN SCAN:\n")
		for _, in := range analysis.Interactions {
			fmt.Fprintf(&b, "- [%s] %s\n", strings.ToUpper(string(in.Severity)), in.Description)
		}
		b.WriteString("\n")
	}

	if analysis.GeneralAdvice != nil && *analysis.GeneralAdvice != "" {
		fmt.Fprintf(&b, "GENERAL ADVICE FROM LABEL: %s\n", *analysis.GeneralAdvice)
	}

	b.WriteString("\nINSTRUCTION: Use the above context to answer the user's questions specifically about this medication. Refer to the specific details found in the scan when possible to provide accurate assistance.")

	return b.String()
}
