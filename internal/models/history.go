package models

// HistoryRecord is a permanent entry written once per completed visit.
// Records are append-only and never edited.
type HistoryRecord struct {
	BaseModel
	AppointmentID  string `gorm:"size:36;index" json:"appointmentId"`
	Patient        string `gorm:"size:100;index" json:"patient"`
	DoctorUsername string `gorm:"size:100" json:"doctorUsername"`
	Time           string `gorm:"size:50" json:"time"`
	Symptom        string `gorm:"type:text" json:"symptom"`
	CompletedAt    string `gorm:"size:40" json:"completedAt"`
}

// TableName keeps the history log apart from any generic "history" table.
func (HistoryRecord) TableName() string {
	return "visit_history"
}
