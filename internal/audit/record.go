package audit

import "time"

// Record is written once per flagged request and never updated.
type Record struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt      time.Time `json:"createdAt" gorm:"index"`
	RequestPath    string    `json:"requestPath" gorm:"type:text"`
	RequestMethod  string    `json:"requestMethod" gorm:"size:16"`
	RequestHeaders string    `json:"requestHeaders" gorm:"type:text"`
	RequestBody    string    `json:"requestBody,omitempty" gorm:"type:text"`
	ThreatType     string    `json:"threatType" gorm:"index;size:32"`
	ThreatPattern  string    `json:"threatPattern" gorm:"type:text"`
	Severity       string    `json:"severity" gorm:"index;size:16"`
	ThreatScore    int       `json:"threatScore"`
	ActionTaken    string    `json:"actionTaken" gorm:"size:16"`
	WasBlocked     bool      `json:"wasBlocked" gorm:"index"`
	SourceIP       string    `json:"sourceIp" gorm:"size:64"`
	SourceCountry  *string   `json:"sourceCountry,omitempty" gorm:"size:8"`
	UserAgent      string    `json:"userAgent" gorm:"type:text"`
	UserID         *string   `json:"userId,omitempty" gorm:"size:64"`
	UserRole       *string   `json:"userRole,omitempty" gorm:"size:32"`
	RuleID         string    `json:"ruleId" gorm:"size:64"`
	RuleName       string    `json:"ruleName"`
	Metadata       Metadata  `json:"metadata" gorm:"type:text;serializer:json"`
}

func (Record) TableName() string {
	return "security_audit_logs"
}

type Metadata struct {
	Policy    string      `json:"policy"`
	RequestID string      `json:"requestId"`
	Hits      []HitRecord `json:"hits"`
}

type HitRecord struct {
	RuleID     string `json:"ruleId"`
	RuleName   string `json:"ruleName"`
	ThreatType string `json:"threatType"`
	Pattern    string `json:"pattern"`
	Severity   string `json:"severity"`
	Score      int    `json:"score"`
	Evidence   string `json:"evidence,omitempty"`
}
