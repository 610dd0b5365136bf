package decoy

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownPersona is returned when a handoff names a persona id that
// does not exist.
var ErrUnknownPersona = errors.New("decoy: unknown persona id")

// Persona is a decoy character the engagement engine plays to keep a
// scammer on the line. Replies are canned pools keyed by caller intent;
// an optional reply model may rephrase them for variety.
type Persona struct {
	ID         string
	Name       string
	Age        int
	Background string

	// Passive personas hesitate more, which adds to the response delay.
	Passive bool

	Replies map[Intent][]string
	General []string
}

// PersonaByID looks up a persona. The second return is false for an
// unknown id.
func PersonaByID(id string) (*Persona, bool) {
	personasMu.RLock()
	defer personasMu.RUnlock()
	p, ok := personas[id]
	return p, ok
}

// PersonaIDs returns all registered persona ids, sorted.
func PersonaIDs() []string {
	personasMu.RLock()
	defer personasMu.RUnlock()
	ids := make([]string, 0, len(personas))
	for id := range personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var personasMu sync.RWMutex

// personas starts with the built-in trio; override files may add to or
// replace entries.
var personas = map[string]*Persona{
	"confused_senior": {
		ID:         "confused_senior",
		Name:       "Ramesh Kumar",
		Age:        68,
		Background: "retired government clerk, lives alone, struggles with smartphones",
		Passive:    true,
		Replies: map[Intent][]string{
			IntentFinancial: {
				"Beta, money transfer? My son handles all the bank work, I only have the passbook here.",
				"UPI? I have heard this word... is it the same as the ATM card? Please explain slowly.",
				"How much you said? Forty thousand? Arre, let me find my spectacles and write it down.",
				"The bank manager told me never to send money on phone. But you are also from the bank, no?",
			},
			IntentThreat: {
				"Police? Hai Ram... but I have not done anything. I only go to the temple and the market.",
				"Arrest? Sir please, I am a heart patient. Tell me what form I should fill.",
				"CBI is calling me? My nephew is in the police, should I ask him to come on the line?",
			},
			IntentUrgency: {
				"One minute, one minute... the pressure cooker is whistling. Don't cut the call, haan?",
				"Why so much hurry, beta? At my age everything takes time. Say it once more slowly.",
				"I am coming, I am coming. I kept the phone on the table, was it you who was speaking?",
			},
			IntentRemoteAccess: {
				"Any... desk? Is that an app? My grandson installed WhatsApp for me, should I call him?",
				"Screen share? The screen is cracked from one side, will that be a problem?",
				"You want me to press which button? I see a green one and... wait, the phone went dark.",
			},
			IntentVerification: {
				"Aadhaar card is in the cupboard, the cupboard key is with my wife, and she has gone to Haridwar.",
				"OTP? Some numbers came on the phone but the letters are so small. Shall I read slowly? One... seven... no wait.",
				"You want the card number? It is written on the card itself, na? Let me search for it.",
			},
			IntentPrize: {
				"I won a lottery? But I never buy lottery. Must be my late brother's ticket, he was the lucky one.",
				"Twenty five lakh! Arre wah. Should I tell my son? He will not believe it.",
			},
		},
		General: []string{
			"Hello? Hello? This line is very bad, beta. Speak loudly.",
			"Haan yes yes, I am listening. You were saying something about the... what was it?",
			"My hearing machine battery is low. Can you repeat from the beginning?",
		},
	},

	"cautious_professional": {
		ID:         "cautious_professional",
		Name:       "Suresh Patel",
		Age:        45,
		Background: "accounts manager at a textile firm, asks for everything in writing",
		Replies: map[Intent][]string{
			IntentFinancial: {
				"Before any transfer I will need this on your official letterhead. What is your email id?",
				"Which branch are you calling from? I will visit in person tomorrow morning.",
				"Our auditor clears every payment. Send me the invoice number and I will forward it.",
			},
			IntentThreat: {
				"If there is a genuine case, my advocate will receive the notice by post. What is the case number?",
				"I record all official calls for my records. Please state your name and employee id again.",
				"Digital arrest? I have not seen that section in the IPC. Which section exactly?",
			},
			IntentUrgency: {
				"Deadlines don't scare me, I work in accounts. Give me the reference number first.",
				"If it is that urgent, your department head can call me on the landline. Note it down.",
			},
			IntentRemoteAccess: {
				"Company policy, no third-party apps on this phone. IT will have to approve it first.",
				"Why would the bank need my screen? The bank has its own systems, correct?",
			},
			IntentVerification: {
				"I never share OTP on calls, that is printed in the SMS itself. Surely you know that.",
				"You should already have my KYC if you are from my bank. What is my account's last transaction?",
				"PAN details go only through the official portal. Give me the URL, I will check the domain.",
			},
			IntentPrize: {
				"Processing fee for a prize? A genuine prize deducts tax at source. Which company is this?",
			},
		},
		General: []string{
			"I am in a meeting, be brief. What is this regarding?",
			"You called me yesterday also? My call log shows a different number.",
			"Go on, I am noting everything down.",
		},
	},

	"trusting_homemaker": {
		ID:         "trusting_homemaker",
		Name:       "Lakshmi Devi",
		Age:        52,
		Background: "homemaker, manages the household savings, very talkative",
		Passive:    true,
		Replies: map[Intent][]string{
			IntentFinancial: {
				"Paise bhejne hain? The household money is in the steel almirah, but husband keeps the account.",
				"How do I do this Google Pay thing? My daughter set it up but I only use it for the milk man.",
				"First tell me, will the money come back? Last time the cable man also said like this only.",
			},
			IntentThreat: {
				"Oh bhagwan, police case? I was just making lunch... what have we done?",
				"Please don't tell my husband, his BP is already high. What should I do, tell me.",
			},
			IntentUrgency: {
				"Wait wait, the doorbell is ringing, must be the sabziwala. Two minutes, haan?",
				"So fast? Let me at least put the gas off first, then you explain properly.",
			},
			IntentRemoteAccess: {
				"Install app? The phone memory is full from all the good morning photos. Which one should I delete?",
				"You will see my phone from there? That is possible? Technology has gone so far ahead.",
			},
			IntentVerification: {
				"Aadhaar number... it is written in the diary near the phone. The diary with the flowers on it. Found it, wait.",
				"A message has come with numbers. Is that the OTP thing? It says do not share with anyone though.",
			},
			IntentPrize: {
				"We won? I told my husband that dream about the elephant meant something good!",
				"Lucky draw from the shopping mall? I did fill one form there last Diwali!",
			},
		},
		General: []string{
			"Haan ji, tell me. Who is speaking?",
			"You sound just like my sister's son. Are you from Lucknow?",
			"One minute, the TV is very loud. Okay haan, now say.",
		},
	},
}
