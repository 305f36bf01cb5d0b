package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.DocumentsDir == "" {
		cfg.Storage.DocumentsDir = "./data/documents"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "./data/index"
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "./data/catalog.db"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 500
	}
	if cfg.Chunking.OverlapSize == 0 {
		cfg.Chunking.OverlapSize = 100
	}
	if cfg.Encoder.MaxFeatures == 0 {
		cfg.Encoder.MaxFeatures = 1000
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 5
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.Gate.DomainKeywords == nil {
		cfg.Gate.DomainKeywords = DefaultDomainKeywords()
	}
	if cfg.Gate.ExclusionKeywords == nil {
		cfg.Gate.ExclusionKeywords = DefaultExclusionKeywords()
	}
	if cfg.Gate.QuestionPatterns == nil {
		cfg.Gate.QuestionPatterns = DefaultQuestionPatterns()
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 400
	}
}

// DefaultDomainKeywords returns the built-in in-domain keyword list for
// the relevance gate. Matching is case-insensitive substring.
func DefaultDomainKeywords() []string {
	return []string{
		// General health terms
		"health", "medical", "medicine", "healthcare", "wellness",
		"disease", "disorder", "condition", "illness", "sickness",
		"symptom", "symptoms", "sign", "signs",
		"treatment", "therapy", "cure", "healing", "recovery",
		"prevention", "preventive", "immunization", "vaccination",
		"first aid", "chronic", "acute",

		// Common symptoms
		"pain", "ache", "sore", "fever", "temperature", "chills",
		"headache", "migraine", "dizziness", "nausea", "vomiting",
		"diarrhea", "constipation", "fatigue", "tired", "weakness",
		"insomnia", "sleepless", "appetite", "thirst",
		"dehydration", "dehydrated", "swelling", "inflammation",
		"rash", "itching", "cramps", "stiffness", "wheezing",
		"cough", "coughing", "sneezing", "congestion", "sore throat",
		"chest pain", "stomach pain", "back pain", "joint pain",

		// Conditions
		"diabetes", "blood sugar", "blood pressure", "hypertension",
		"asthma", "bronchitis", "pneumonia", "allergy", "allergic",
		"infection", "viral", "bacterial", "influenza", "flu",
		"cold", "anemia", "deficiency", "obesity", "thyroid",
		"ulcer", "heartburn", "acid reflux", "arthritis",
		"anxiety", "depression", "stress", "stressed", "mental health",

		// Remedies and nutrition
		"home remedy", "natural treatment", "herbal", "supplement",
		"vitamin", "vitamins", "mineral", "probiotic", "antioxidant",
		"nutrition", "nutritious", "hydration",

		// Injuries
		"injury", "wound", "cut", "bruise", "burn", "burns",
		"sprain", "strain", "fracture", "bleeding", "choking",

		// Body
		"stomach", "belly", "throat", "lung", "lungs", "heart",
		"liver", "kidney", "muscle", "bone", "spine", "skin",

		// Exercise
		"exercise", "fitness", "stretching", "yoga",
	}
}

// DefaultExclusionKeywords returns the built-in out-of-domain keyword
// list. A query matching an exclusion keyword with no domain keyword is
// rejected before the pattern fallback is consulted.
func DefaultExclusionKeywords() []string {
	return []string{
		// Math and science
		"mathematics", "math", "algebra", "geometry", "calculus",
		"physics", "chemistry", "equation", "formula",

		// History, geography, politics
		"history", "historical", "ancient", "war", "battle", "empire",
		"geography", "country", "continent", "capital",
		"politics", "political", "government", "election", "president",
		"parliament", "democracy",

		// Weather and environment
		"weather", "climate", "rain", "snow", "storm", "hurricane",
		"forecast", "pollution", "global warming",

		// Sports and entertainment
		"sports", "football", "soccer", "basketball", "cricket",
		"tennis", "tournament", "olympics",
		"entertainment", "movie", "film", "cinema", "television",
		"music", "song", "concert", "celebrity", "actor",

		// Food, travel, shopping
		"recipe", "restaurant", "cuisine", "chef",
		"travel", "tourism", "vacation", "hotel", "flight", "passport",
		"shopping", "purchase", "price", "discount", "ecommerce",

		// Technology and finance
		"programming", "coding", "software", "laptop", "smartphone",
		"gaming", "video game", "artificial intelligence", "blockchain",
		"finance", "banking", "investment", "stock", "trading",
		"salary", "loan", "tax",

		// Education and work
		"school", "college", "university", "homework", "exam",
		"scholarship", "job", "career", "interview", "resume",
		"promotion",

		// Social and misc
		"dating", "marriage", "wedding", "birthday", "party",
		"fashion", "clothing", "cosmetics", "furniture", "garden",
		"journalism",
	}
}

// DefaultQuestionPatterns returns the question-shaped phrases that admit
// a query matching neither keyword list.
func DefaultQuestionPatterns() []string {
	return []string{
		"what is", "how to", "symptoms of", "treatment for", "cure for",
		"prevent", "avoid", "home remedy", "natural treatment",
		"should i", "can i", "is it safe", "side effects",
		"causes of", "signs of", "warning signs", "when to see",
	}
}
