package specialty

// defaultTable is the built-in symptom table. Order matters for substring
// matching: the first matching entry wins.
var defaultTable = []Entry{
	{"fever", "General Physician"},
	{"cough", "General Physician"},
	{"cold", "ENT"},
	{"headache", "Neurologist"},
	{"back pain", "Orthopedic"},
	{"stomach pain", "Gastroenterologist"},
	{"nausea", "Gastroenterologist"},
	{"vomiting", "Gastroenterologist"},
	{"dizziness", "Neurologist"},
	{"fatigue", "General Physician"},
	{"chest pain", "Cardiologist"},
	{"shortness of breath", "Cardiologist"},
	{"allergy", "Allergist"},
	{"sore throat", "ENT"},
	{"diarrhea", "Gastroenterologist"},
	{"constipation", "Gastroenterologist"},
	{"joint pain", "Orthopedic"},
	{"muscle pain", "Orthopedic"},
	{"rash", "Dermatologist"},
	{"insomnia", "Psychiatrist"},
	{"anxiety", "Psychiatrist"},
	{"depression", "Psychiatrist"},
	{"weight loss", "Endocrinologist"},
	{"weight gain", "Endocrinologist"},
	{"blurred vision", "Ophthalmologist"},
	{"ear pain", "ENT"},
	{"eye pain", "Ophthalmologist"},
	{"urination problem", "Nephrologist"},
	{"hair fall", "Dermatologist"},
	{"memory loss", "Neurologist"},
	{"heartburn", "Gastroenterologist"},
	{"gas problem", "Gastroenterologist"},
	{"cold hands", "General Physician"},
	{"cold feet", "General Physician"},
	{"sweating", "General Physician"},
	{"thirst", "Endocrinologist"},
	{"frequent urination", "Endocrinologist"},
	{"coughing blood", "Pulmonologist"},
	{"nose bleeding", "ENT"},
	{"swelling", "Nephrologist"},
	{"lump", "Oncologist"},
	{"chest tightness", "Cardiologist"},
	{"palpitations", "Cardiologist"},
	{"loss of appetite", "General Physician"},
	{"vomiting blood", "Gastroenterologist"},
	{"confusion", "Neurologist"},
	{"feeling cold", "General Physician"},
	{"feeling hot", "General Physician"},
	{"difficulty swallowing", "ENT"},
	{"snoring", "ENT"},
	{"gas trouble", "Gastroenterologist"},
	{"heart attack", "Cardiologist"},
	{"acid reflux", "Gastroenterologist"},
	{"heart pain", "Cardiologist"},
	{"skin discoloration", "Dermatologist"},
	{"itching", "Dermatologist"},
	{"acne", "Dermatologist"},
	{"hearing loss", "ENT"},
	{"ringing in ears", "ENT"},
	{"tonsil pain", "ENT"},
	{"child not eating", "Pediatrician"},
	{"delayed milestones", "Pediatrician"},
	{"bone fracture", "Orthopedic"},
	{"knee stiffness", "Orthopedic"},
	{"bloating", "Gastroenterologist"},
	{"mood swings", "Psychiatrist"},
	{"panic attacks", "Psychiatrist"},
	{"chronic cough", "Pulmonologist"},
	{"wheezing", "Pulmonologist"},
	{"hormonal imbalance", "Endocrinologist"},
	{"irregular periods", "Endocrinologist"},
	{"kidney pain", "Nephrologist"},
	{"foamy urine", "Nephrologist"},
	{"eye redness", "Ophthalmologist"},
	{"double vision", "Ophthalmologist"},
	{"joint swelling", "Rheumatologist"},
	{"morning stiffness", "Rheumatologist"},
	{"unexplained bruising", "Oncologist"},
	{"persistent fatigue", "Oncologist"},
	{"seasonal sneezing", "Allergist"},
	{"skin allergy", "Allergist"},
	{"irregular heartbeat", "Cardiologist"},
	{"chest heaviness", "Cardiologist"},
}
