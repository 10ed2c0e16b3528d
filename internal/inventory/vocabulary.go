package inventory

import "regexp"

// ConditionRule links a group of complaint keywords to the drug-class
// keywords that make an inventory item relevant to that complaint. The rules
// are data, not logic: the selector works against any vocabulary, which keeps
// the scoring engine language-agnostic and testable with a one-rule table.
type ConditionRule struct {
	// Group names the rule for diagnostics.
	Group string
	// Complaint matches against the folded complaint/symptom text.
	Complaint *regexp.Regexp
	// Classes are substrings looked up in the drug's name, generic name and
	// active ingredient.
	Classes []string
}

// Vocabulary is the injectable keyword configuration for the relevance
// selector.
type Vocabulary struct {
	Rules []ConditionRule
	// Essential drugs get a small score bump so a basic kit stays in the
	// payload even for vague complaints.
	Essential []string
	// PreferredForms are dosage forms favored for dispensing.
	PreferredForms []string
}

// DefaultVocabulary returns the built-in multilingual mapping covering
// English, Latvian and Russian complaint phrasings.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Rules: []ConditionRule{
			{
				Group:     "analgesics",
				Complaint: regexp.MustCompile(`pain|ache|headache|migraine|fever|temperature|sapes|sap|galvassapes|drudzis|temperatura|боль|болит|голова|температур|жар`),
				Classes:   []string{"ibuprofen", "paracetamol", "acetaminophen", "aspirin", "diclofenac", "naproxen", "ketoprofen", "analgin", "metamizole"},
			},
			{
				Group:     "antibiotics",
				Complaint: regexp.MustCompile(`infection|bacterial|angina|tonsillitis|pneumonia|infekcija|iekaisums|инфекц|ангина|воспал`),
				Classes:   []string{"amoxicillin", "azithromycin", "clarithromycin", "cefuroxime", "ciprofloxacin", "doxycycline", "penicillin", "clavulanic"},
			},
			{
				Group:     "antihistamines",
				Complaint: regexp.MustCompile(`allerg|rash|itch|hives|urticaria|alergija|nieze|izsitumi|аллерг|зуд|сыпь|крапивниц`),
				Classes:   []string{"loratadine", "cetirizine", "desloratadine", "levocetirizine", "fexofenadine", "chloropyramine"},
			},
			{
				Group:     "respiratory",
				Complaint: regexp.MustCompile(`cough|bronchitis|asthma|wheez|sputum|klepus|bronhits|astma|кашель|бронхит|астма|мокрот`),
				Classes:   []string{"ambroxol", "bromhexine", "salbutamol", "acetylcysteine", "mucolytic", "codeine", "butamirate"},
			},
			{
				Group:     "digestive",
				Complaint: regexp.MustCompile(`stomach|nausea|vomit|diarrhea|heartburn|reflux|gastritis|veders|slikta dusa|caureja|gremosana|живот|тошнот|рвот|диарея|изжог|гастрит`),
				Classes:   []string{"omeprazole", "pantoprazole", "loperamide", "domperidone", "metoclopramide", "smecta", "charcoal", "pancreatin"},
			},
			{
				Group:     "dermatological",
				Complaint: regexp.MustCompile(`skin|wound|burn|eczema|dermatitis|ada|bruce|apdegums|ekzema|кожа|рана|ожог|экзем|дерматит`),
				Classes:   []string{"hydrocortisone", "betamethasone", "panthenol", "clotrimazole", "mupirocin", "zinc ointment"},
			},
			{
				Group:     "cardiovascular",
				Complaint: regexp.MustCompile(`chest|heart|pressure|hypertension|palpitat|sirds|spiediens|hipertensija|сердц|давлен|гипертон|аритм`),
				Classes:   []string{"amlodipine", "lisinopril", "enalapril", "metoprolol", "bisoprolol", "losartan", "nitroglycerin", "ramipril"},
			},
			{
				Group:     "metabolic",
				Complaint: regexp.MustCompile(`diabetes|sugar|glucose|thyroid|diabets|cukurs|vairogdziedzeris|диабет|сахар|глюкоз|щитовидн`),
				Classes:   []string{"metformin", "gliclazide", "insulin", "levothyroxine", "empagliflozin"},
			},
			{
				Group:     "psychotropic",
				Complaint: regexp.MustCompile(`anxiety|insomnia|sleep|stress|depress|panic|trauksme|bezmiegs|miegs|stress|тревог|бессонниц|сон|стресс|депресс|паник`),
				Classes:   []string{"valerian", "melatonin", "sertraline", "escitalopram", "diazepam", "hydroxyzine"},
			},
			{
				Group:     "supplements",
				Complaint: regexp.MustCompile(`fatigue|weak|tired|immunity|vitamin|nogurums|vajums|imunitate|vitamins|усталост|слабост|иммунитет|витамин`),
				Classes:   []string{"vitamin", "magnesium", "zinc", "iron", "omega", "multivitamin", "ascorbic"},
			},
		},
		Essential: []string{
			"paracetamol",
			"ibuprofen",
			"aspirin",
			"loratadine",
			"omeprazole",
			"activated charcoal",
		},
		PreferredForms: []string{"tablet", "capsule", "tabletes", "kapsulas"},
	}
}
