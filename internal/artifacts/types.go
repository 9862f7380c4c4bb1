package artifacts

// ContentArtifact is the extracted text of a resume. Structured fields stay
// unset until an extraction stage fills them.
type ContentArtifact struct {
	ID          string  `bson:"_id" json:"-"`
	ResumeID    string  `bson:"resume_id" json:"resume_id"`
	UserID      int64   `bson:"user_id" json:"user_id"`
	RawText     string  `bson:"raw_text" json:"raw_text"`
	FullName    *string `bson:"full_name,omitempty" json:"full_name,omitempty"`
	Email       *string `bson:"email,omitempty" json:"email,omitempty"`
	Phone       *string `bson:"phone,omitempty" json:"phone,omitempty"`
	Location    *string `bson:"location,omitempty" json:"location,omitempty"`
	LinkedInURL *string `bson:"linkedin_url,omitempty" json:"linkedin_url,omitempty"`
	Summary     *string `bson:"summary,omitempty" json:"summary,omitempty"`
}

// AnalysisArtifact is the heuristic scoring output for a resume.
type AnalysisArtifact struct {
	ID                     string   `bson:"_id" json:"-"`
	ResumeID               string   `bson:"resume_id" json:"resume_id"`
	UserID                 int64    `bson:"user_id" json:"user_id"`
	OverallScore           float64  `bson:"overall_score" json:"overall_score"`
	ContentScore           float64  `bson:"content_score" json:"content_score"`
	FormattingScore        float64  `bson:"formatting_score" json:"formatting_score"`
	ATSCompatibilityScore  float64  `bson:"ats_compatibility_score" json:"ats_compatibility_score"`
	Strengths              []string `bson:"strengths" json:"strengths"`
	Weaknesses             []string `bson:"weaknesses" json:"weaknesses"`
	ImprovementSuggestions []string `bson:"improvement_suggestions" json:"improvement_suggestions"`
}

// contentPatch lists the fields a partial content update may set.
type contentPatch struct {
	UserID      *int64  `mapstructure:"user_id" bson:"user_id,omitempty"`
	RawText     *string `mapstructure:"raw_text" bson:"raw_text,omitempty"`
	FullName    *string `mapstructure:"full_name" bson:"full_name,omitempty"`
	Email       *string `mapstructure:"email" bson:"email,omitempty"`
	Phone       *string `mapstructure:"phone" bson:"phone,omitempty"`
	Location    *string `mapstructure:"location" bson:"location,omitempty"`
	LinkedInURL *string `mapstructure:"linkedin_url" bson:"linkedin_url,omitempty"`
	Summary     *string `mapstructure:"summary" bson:"summary,omitempty"`
}

func (p contentPatch) apply(doc *ContentArtifact) {
	if p.UserID != nil {
		doc.UserID = *p.UserID
	}
	if p.RawText != nil {
		doc.RawText = *p.RawText
	}
	setString(&doc.FullName, p.FullName)
	setString(&doc.Email, p.Email)
	setString(&doc.Phone, p.Phone)
	setString(&doc.Location, p.Location)
	setString(&doc.LinkedInURL, p.LinkedInURL)
	setString(&doc.Summary, p.Summary)
}

// analysisPatch lists the fields a partial analysis update may set.
type analysisPatch struct {
	UserID                 *int64    `mapstructure:"user_id" bson:"user_id,omitempty"`
	OverallScore           *float64  `mapstructure:"overall_score" bson:"overall_score,omitempty"`
	ContentScore           *float64  `mapstructure:"content_score" bson:"content_score,omitempty"`
	FormattingScore        *float64  `mapstructure:"formatting_score" bson:"formatting_score,omitempty"`
	ATSCompatibilityScore  *float64  `mapstructure:"ats_compatibility_score" bson:"ats_compatibility_score,omitempty"`
	Strengths              *[]string `mapstructure:"strengths" bson:"strengths,omitempty"`
	Weaknesses             *[]string `mapstructure:"weaknesses" bson:"weaknesses,omitempty"`
	ImprovementSuggestions *[]string `mapstructure:"improvement_suggestions" bson:"improvement_suggestions,omitempty"`
}

func (p analysisPatch) apply(doc *AnalysisArtifact) {
	if p.UserID != nil {
		doc.UserID = *p.UserID
	}
	setFloat(&doc.OverallScore, p.OverallScore)
	setFloat(&doc.ContentScore, p.ContentScore)
	setFloat(&doc.FormattingScore, p.FormattingScore)
	setFloat(&doc.ATSCompatibilityScore, p.ATSCompatibilityScore)
	setStrings(&doc.Strengths, p.Strengths)
	setStrings(&doc.Weaknesses, p.Weaknesses)
	setStrings(&doc.ImprovementSuggestions, p.ImprovementSuggestions)
}

func setString(dst **string, v *string) {
	if v != nil {
		s := *v
		*dst = &s
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setStrings(dst *[]string, v *[]string) {
	if v != nil {
		*dst = cloneStrings(*v)
	}
}

func (c ContentArtifact) clone() ContentArtifact {
	out := c
	out.FullName = cloneString(c.FullName)
	out.Email = cloneString(c.Email)
	out.Phone = cloneString(c.Phone)
	out.Location = cloneString(c.Location)
	out.LinkedInURL = cloneString(c.LinkedInURL)
	out.Summary = cloneString(c.Summary)
	return out
}

func (a AnalysisArtifact) clone() AnalysisArtifact {
	out := a
	out.Strengths = cloneStrings(a.Strengths)
	out.Weaknesses = cloneStrings(a.Weaknesses)
	out.ImprovementSuggestions = cloneStrings(a.ImprovementSuggestions)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneStrings copies s. An empty list stays empty so it is stored as [] and
// not as null.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
