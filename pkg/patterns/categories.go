package patterns

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All patterns are registered here and compiled once at package init.
// Vocabulary covers English and common Hinglish phrasings heard on fraud
// calls targeting Indian subscribers.
// =============================================================================

// --- URGENCY PRESSURE ---
func (r *Registry) registerUrgencyPatterns() {
	cat := CategoryUrgency

	r.register("urgent", `(?i)\burgent(ly)?\b`, cat, "Urgency framing")
	r.register("immediately", `(?i)\bimmediately\b`, cat, "Immediate action demand")
	r.register("right_now", `(?i)\bright\s+now\b`, cat, "Immediate action demand")
	r.register("act_fast", `(?i)\bact\s+(fast|quickly|now)\b`, cat, "Time pressure")
	r.register("expire", `(?i)\bexpir(e|es|ed|ing|y)\b`, cat, "Expiry pressure")
	r.register("last_chance", `(?i)\blast\s+(chance|warning|opportunity)\b`, cat, "Final warning framing")
	r.register("limited_time", `(?i)\blimited\s+time\b`, cat, "Time-boxed offer")
	r.register("deadline", `(?i)\bdeadline\b`, cat, "Deadline pressure")
	r.register("within_hours", `(?i)\bwithin\s+\d+\s+(minutes?|hours?)\b`, cat, "Countdown pressure")
	r.register("jaldi", `(?i)\b(jaldi|turant|abhi)\b`, cat, "Urgency (Hinglish)")
}

// --- FINANCIAL REQUESTS ---
func (r *Registry) registerFinancialPatterns() {
	cat := CategoryFinancial

	r.register("transfer_money", `(?i)\b(transfer|send)\s+(the\s+)?(money|funds?|amount|paisa|paise)\b`, cat, "Money transfer request")
	r.register("payment", `(?i)\b(make|complete)\s+(a\s+|the\s+)?payment\b`, cat, "Payment demand")
	r.register("bank_account", `(?i)\bbank\s+account\b`, cat, "Bank account reference")
	r.register("upi_mention", `(?i)\b(upi|paytm|phonepe|google\s*pay|gpay|bhim)\b`, cat, "UPI app reference")
	r.register("processing_fee", `(?i)\b(processing|registration|refundable|token)\s+(fee|charge|amount)\b`, cat, "Advance fee")
	r.register("deposit", `(?i)\bdeposit\b`, cat, "Deposit request")
	r.register("net_banking", `(?i)\bnet\s*banking\b`, cat, "Net banking reference")
	r.register("wallet", `(?i)\b(e-?wallet|wallet\s+balance)\b`, cat, "Wallet reference")
	r.register("gift_card", `(?i)\bgift\s+card\b`, cat, "Gift card payment")
}

// --- AUTHORITY IMPERSONATION ---
func (r *Registry) registerImpersonationPatterns() {
	cat := CategoryImpersonation

	r.register("police", `(?i)\bpolice\b`, cat, "Police impersonation")
	r.register("officer", `(?i)\b(officer|inspector|constable)\b`, cat, "Law enforcement title")
	r.register("government", `(?i)\bgovernment\b`, cat, "Government claim")
	r.register("income_tax", `(?i)\bincome\s+tax\b`, cat, "Income tax department")
	r.register("rbi", `(?i)\b(rbi|reserve\s+bank)\b`, cat, "Reserve Bank impersonation")
	r.register("customs", `(?i)\bcustoms\b`, cat, "Customs department")
	r.register("cbi_ed", `(?i)\b(cbi|enforcement\s+directorate)\b`, cat, "Central agency impersonation")
	r.register("court", `(?i)\b(court|magistrate|warrant)\b`, cat, "Judicial reference")
	r.register("bank_official", `(?i)\b(bank\s+(official|officer|manager)|calling\s+from\s+(your\s+)?bank)\b`, cat, "Bank official claim")
	r.register("tech_support", `(?i)\b(microsoft|tech(nical)?\s+support|service\s+center)\b`, cat, "Tech support claim")
	r.register("telecom", `(?i)\b(trai|telecom\s+(department|authority))\b`, cat, "Telecom authority claim")
}

// --- COERCION AND THREATS ---
func (r *Registry) registerCoercionPatterns() {
	cat := CategoryCoercion

	r.register("arrest", `(?i)\barrest(ed)?\b`, cat, "Arrest threat")
	r.register("jail", `(?i)\b(jail|prison|custody)\b`, cat, "Imprisonment threat")
	r.register("legal_action", `(?i)\blegal\s+action\b`, cat, "Legal threat")
	r.register("case_filed", `(?i)\b(case|fir|complaint)\s+(is\s+)?(filed|registered|lodged)\b`, cat, "Criminal case claim")
	r.register("account_blocked", `(?i)\b(blocked?|suspend(ed)?|deactivat(e|ed)|freeze|frozen)\b`, cat, "Account suspension threat")
	r.register("penalty", `(?i)\b(penalty|fine|charges\s+will)\b`, cat, "Financial penalty threat")
	r.register("digital_arrest", `(?i)\bdigital\s+arrest\b`, cat, "Digital arrest scare")
	r.register("non_bailable", `(?i)\bnon[-\s]?bailable\b`, cat, "Non-bailable warrant scare")
}

// --- REMOTE ACCESS ---
func (r *Registry) registerRemoteAccessPatterns() {
	cat := CategoryRemoteAccess

	r.register("anydesk", `(?i)\bany\s*desk\b`, cat, "AnyDesk install request")
	r.register("teamviewer", `(?i)\bteam\s*viewer\b`, cat, "TeamViewer install request")
	r.register("quick_support", `(?i)\bquick\s*support\b`, cat, "QuickSupport install request")
	r.register("screen_share", `(?i)\b(share|sharing)\s+(your\s+)?screen\b`, cat, "Screen sharing request")
	r.register("install_app", `(?i)\b(install|download)\s+(this|the|an?)\s+(app|application|software)\b`, cat, "App install request")
	r.register("remote_access", `(?i)\bremote\s+(access|control|desktop)\b`, cat, "Remote access request")
	r.register("access_code", `(?i)\b(9|10)[-\s]?digit\s+code\b`, cat, "Remote session code request")
}

// --- IDENTITY VERIFICATION ---
func (r *Registry) registerVerificationPatterns() {
	cat := CategoryVerification

	r.register("otp", `(?i)\b(otp|one[-\s]?time\s+password)\b`, cat, "OTP request")
	r.register("verify", `(?i)\bverif(y|ication|ied)\b`, cat, "Verification framing")
	r.register("kyc", `(?i)\bkyc\b`, cat, "KYC update scam")
	r.register("aadhaar_mention", `(?i)\baadhaa?r\b`, cat, "Aadhaar reference")
	r.register("pan_mention", `(?i)\bpan\s+(card|number|details)\b`, cat, "PAN reference")
	r.register("confirm_details", `(?i)\bconfirm\s+(your|the)\s+(details|identity|number|account)\b`, cat, "Detail confirmation request")
	r.register("card_details", `(?i)\b(card\s+(number|details)|cvv|expiry\s+date)\b`, cat, "Card detail request")
	r.register("last_four", `(?i)\blast\s+(four|4)\s+digits\b`, cat, "Partial credential request")
}

// --- PRIZE AND LOTTERY ---
func (r *Registry) registerPrizePatterns() {
	cat := CategoryPrize

	r.register("lottery", `(?i)\blottery\b`, cat, "Lottery scam")
	r.register("winner", `(?i)\b(won|winner|winning)\b`, cat, "Winner announcement")
	r.register("prize", `(?i)\bprize\b`, cat, "Prize offer")
	r.register("lucky_draw", `(?i)\blucky\s+draw\b`, cat, "Lucky draw scam")
	r.register("cashback", `(?i)\bcash\s*back\b`, cat, "Cashback lure")
	r.register("reward", `(?i)\breward\b`, cat, "Reward lure")
	r.register("free_gift", `(?i)\b(free\s+gift|gift\s+voucher)\b`, cat, "Free gift lure")
	r.register("crore_lakh", `(?i)\b\d+\s?(crore|lakh)s?\b`, cat, "Large sum lure")
}

// --- PRESSURE TACTICS (behavioral) ---
func (r *Registry) registerPressurePatterns() {
	cat := CategoryPressure

	r.register("dont_hang_up", `(?i)\b(don'?t|do\s+not)\s+(hang\s+up|cut\s+the\s+call|disconnect)\b`, cat, "Call retention pressure")
	r.register("stay_on_line", `(?i)\bstay\s+on\s+(the\s+)?(line|call)\b`, cat, "Call retention pressure")
	r.register("listen_carefully", `(?i)\blisten\s+(to\s+me\s+)?(carefully|very\s+carefully)\b`, cat, "Attention control")
	r.register("do_as_i_say", `(?i)\bdo\s+(exactly\s+)?(as|what)\s+i\s+(say|tell)\b`, cat, "Compliance demand")
	r.register("no_time", `(?i)\b(no|there'?s\s+no)\s+time\s+(to|for)\b`, cat, "Deliberation denial")
}

// --- SECRECY TACTICS (behavioral) ---
func (r *Registry) registerSecrecyPatterns() {
	cat := CategorySecrecy

	r.register("tell_no_one", `(?i)\b(don'?t|do\s+not)\s+tell\s+(anyone|anybody|your\s+family)\b`, cat, "Secrecy demand")
	r.register("keep_secret", `(?i)\bkeep\s+(this|it)\s+(a\s+)?(secret|confidential|between\s+us)\b`, cat, "Secrecy demand")
	r.register("confidential_matter", `(?i)\b(confidential|secret)\s+(matter|investigation|case)\b`, cat, "Confidentiality framing")
	r.register("do_not_disclose", `(?i)\b(don'?t|do\s+not)\s+disclose\b`, cat, "Disclosure prohibition")
}

// --- ISOLATION TACTICS (behavioral) ---
func (r *Registry) registerIsolationPatterns() {
	cat := CategoryIsolation

	r.register("are_you_alone", `(?i)\bare\s+you\s+alone\b`, cat, "Isolation probe")
	r.register("go_somewhere_private", `(?i)\bgo\s+(to\s+)?(a\s+)?(private|quiet|separate)\s+(room|place)\b`, cat, "Physical isolation request")
	r.register("dont_involve", `(?i)\b(don'?t|do\s+not)\s+(involve|consult|ask)\s+(anyone|your|the)\b`, cat, "Third-party exclusion")
	r.register("police_station_visit", `(?i)\b(don'?t|no\s+need\s+to)\s+(go|visit)\s+(to\s+)?(the\s+)?police\s+station\b`, cat, "Verification discouragement")
}
