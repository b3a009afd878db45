package crm

// CustomField is a custom field value on a contact or opportunity
type CustomField struct {
	ID    string      `json:"id" validate:"required"`
	Key   string      `json:"key,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// Contact is a CRM contact
type Contact struct {
	ID           string        `json:"id" validate:"required"`
	LocationID   string        `json:"locationId,omitempty"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Name         string        `json:"name,omitempty"`
	Email        string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string        `json:"phone,omitempty"`
	CompanyName  string        `json:"companyName,omitempty"`
	Address1     string        `json:"address1,omitempty"`
	City         string        `json:"city,omitempty"`
	State        string        `json:"state,omitempty"`
	PostalCode   string        `json:"postalCode,omitempty"`
	Country      string        `json:"country,omitempty"`
	Website      string        `json:"website,omitempty"`
	Timezone     string        `json:"timezone,omitempty"`
	Source       string        `json:"source,omitempty"`
	Type         string        `json:"type,omitempty"`
	AssignedTo   string        `json:"assignedTo,omitempty"`
	DND          bool          `json:"dnd,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
	DateAdded    string        `json:"dateAdded,omitempty"`
	DateUpdated  string        `json:"dateUpdated,omitempty"`
}

// ContactInput is the writable part of a contact. At least an email or a
// phone number is required.
type ContactInput struct {
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Name         string        `json:"name,omitempty"`
	Email        string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string        `json:"phone,omitempty" validate:"required_without=Email"`
	CompanyName  string        `json:"companyName,omitempty"`
	Address1     string        `json:"address1,omitempty"`
	City         string        `json:"city,omitempty"`
	State        string        `json:"state,omitempty"`
	PostalCode   string        `json:"postalCode,omitempty"`
	Country      string        `json:"country,omitempty"`
	Website      string        `json:"website,omitempty" validate:"omitempty,url_format"`
	Timezone     string        `json:"timezone,omitempty"`
	Source       string        `json:"source,omitempty"`
	AssignedTo   string        `json:"assignedTo,omitempty"`
	DND          *bool         `json:"dnd,omitempty"`
	Tags         []string      `json:"tags,omitempty" validate:"omitempty,dive,required"`
	CustomFields []CustomField `json:"customFields,omitempty" validate:"omitempty,dive"`
}

// ContactUpdate changes a contact; empty fields are left untouched
type ContactUpdate struct {
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Name         string        `json:"name,omitempty"`
	Email        string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string        `json:"phone,omitempty"`
	CompanyName  string        `json:"companyName,omitempty"`
	Address1     string        `json:"address1,omitempty"`
	City         string        `json:"city,omitempty"`
	State        string        `json:"state,omitempty"`
	PostalCode   string        `json:"postalCode,omitempty"`
	Country      string        `json:"country,omitempty"`
	Website      string        `json:"website,omitempty" validate:"omitempty,url_format"`
	Timezone     string        `json:"timezone,omitempty"`
	Source       string        `json:"source,omitempty"`
	AssignedTo   string        `json:"assignedTo,omitempty"`
	DND          *bool         `json:"dnd,omitempty"`
	Tags         []string      `json:"tags,omitempty" validate:"omitempty,dive,required"`
	CustomFields []CustomField `json:"customFields,omitempty" validate:"omitempty,dive"`
}

// ContactSearchParams filters and pages a contact search
type ContactSearchParams struct {
	// LocationID defaults to Config.LocationID
	LocationID string
	Query      string
	// Limit is the page size, the API default when 0
	Limit        int `validate:"gte=0,lte=100"`
	StartAfterID string
	StartAfter   int64
}

// ContactPage is one page of contacts
type ContactPage struct {
	Contacts []Contact `json:"contacts" validate:"dive"`
	Meta     PageMeta  `json:"meta"`
}

// PageMeta carries the paging cursor of a list response
type PageMeta struct {
	Total        int    `json:"total"`
	NextPageURL  string `json:"nextPageUrl,omitempty"`
	StartAfterID string `json:"startAfterId,omitempty"`
	StartAfter   int64  `json:"startAfter,omitempty"`
	CurrentPage  int    `json:"currentPage,omitempty"`
	NextPage     int    `json:"nextPage,omitempty"`
}

// HasMore reports whether another page can be requested
func (m PageMeta) HasMore() bool {
	return m.NextPageURL != "" || m.NextPage > 0
}

// Opportunity statuses
const (
	StatusOpen      = "open"
	StatusWon       = "won"
	StatusLost      = "lost"
	StatusAbandoned = "abandoned"
)

// Opportunity is a deal in a pipeline
type Opportunity struct {
	ID                 string        `json:"id" validate:"required"`
	Name               string        `json:"name,omitempty"`
	MonetaryValue      float64       `json:"monetaryValue,omitempty"`
	PipelineID         string        `json:"pipelineId,omitempty"`
	PipelineStageID    string        `json:"pipelineStageId,omitempty"`
	AssignedTo         string        `json:"assignedTo,omitempty"`
	Status             string        `json:"status,omitempty" validate:"omitempty,oneof=open won lost abandoned"`
	Source             string        `json:"source,omitempty"`
	ContactID          string        `json:"contactId,omitempty"`
	LocationID         string        `json:"locationId,omitempty"`
	LastStatusChangeAt string        `json:"lastStatusChangeAt,omitempty"`
	CreatedAt          string        `json:"createdAt,omitempty"`
	UpdatedAt          string        `json:"updatedAt,omitempty"`
	CustomFields       []CustomField `json:"customFields,omitempty"`
}

// OpportunityInput creates an opportunity
type OpportunityInput struct {
	PipelineID      string        `json:"pipelineId" validate:"required"`
	PipelineStageID string        `json:"pipelineStageId,omitempty"`
	Name            string        `json:"name" validate:"required"`
	Status          string        `json:"status" validate:"required,oneof=open won lost abandoned"`
	ContactID       string        `json:"contactId" validate:"required"`
	MonetaryValue   float64       `json:"monetaryValue,omitempty" validate:"gte=0"`
	AssignedTo      string        `json:"assignedTo,omitempty"`
	Source          string        `json:"source,omitempty"`
	CustomFields    []CustomField `json:"customFields,omitempty" validate:"omitempty,dive"`
}

// OpportunityUpdate changes an opportunity; empty fields are left untouched
type OpportunityUpdate struct {
	PipelineID      string        `json:"pipelineId,omitempty"`
	PipelineStageID string        `json:"pipelineStageId,omitempty"`
	Name            string        `json:"name,omitempty"`
	Status          string        `json:"status,omitempty" validate:"omitempty,oneof=open won lost abandoned"`
	MonetaryValue   *float64      `json:"monetaryValue,omitempty" validate:"omitempty,gte=0"`
	AssignedTo      string        `json:"assignedTo,omitempty"`
	Source          string        `json:"source,omitempty"`
	CustomFields    []CustomField `json:"customFields,omitempty" validate:"omitempty,dive"`
}

// OpportunitySearchParams filters and pages an opportunity search
type OpportunitySearchParams struct {
	// LocationID defaults to Config.LocationID
	LocationID      string
	PipelineID      string
	PipelineStageID string
	Status          string `validate:"omitempty,oneof=open won lost abandoned all"`
	ContactID       string
	Query           string
	Limit           int `validate:"gte=0,lte=100"`
	Page            int `validate:"gte=0"`
}

// OpportunityPage is one page of opportunities
type OpportunityPage struct {
	Opportunities []Opportunity `json:"opportunities" validate:"dive"`
	Meta          PageMeta      `json:"meta"`
}

// PipelineStage is a stage of a pipeline
type PipelineStage struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Position int    `json:"position"`
}

// Pipeline is a sales pipeline with its ordered stages
type Pipeline struct {
	ID         string          `json:"id" validate:"required"`
	Name       string          `json:"name"`
	LocationID string          `json:"locationId,omitempty"`
	Stages     []PipelineStage `json:"stages" validate:"dive"`
}

// StageRef identifies a stage found by name
type StageRef struct {
	ID   string
	Name string
}

// UserRoles describes a user's account role
type UserRoles struct {
	Type        string   `json:"type,omitempty" validate:"omitempty,oneof=account agency"`
	Role        string   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	LocationIDs []string `json:"locationIds,omitempty"`
}

// User is a CRM user
type User struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name,omitempty"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string     `json:"phone,omitempty"`
	Extension string     `json:"extension,omitempty"`
	Roles     *UserRoles `json:"roles,omitempty"`
	Deleted   bool       `json:"deleted,omitempty"`
}

// UserInput creates a user
type UserInput struct {
	CompanyID   string   `json:"companyId" validate:"required"`
	FirstName   string   `json:"firstName" validate:"required"`
	LastName    string   `json:"lastName" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	Phone       string   `json:"phone,omitempty"`
	Type        string   `json:"type" validate:"required,oneof=account agency"`
	Role        string   `json:"role" validate:"required,oneof=admin user"`
	LocationIDs []string `json:"locationIds" validate:"required,min=1,dive,required"`
}

// UserUpdate changes a user; empty fields are left untouched
type UserUpdate struct {
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Email       string   `json:"email,omitempty" validate:"omitempty,email"`
	Password    string   `json:"password,omitempty" validate:"omitempty,min=8"`
	Phone       string   `json:"phone,omitempty"`
	Type        string   `json:"type,omitempty" validate:"omitempty,oneof=account agency"`
	Role        string   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	LocationIDs []string `json:"locationIds,omitempty" validate:"omitempty,dive,required"`
}
