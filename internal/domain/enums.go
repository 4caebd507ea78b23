package domain

type Category string

const (
	CategoryFrontend  Category = "Frontend"
	CategoryBackend   Category = "Backend"
	CategoryDevOps    Category = "DevOps"
	CategoryDesign    Category = "Design"
	CategoryAnalytics Category = "Analytics"
	CategoryTesting   Category = "Testing"
	CategoryMobile    Category = "Mobile"
	CategoryDatabase  Category = "Database"
)

// Categories is the fixed, ordered set of template categories.
var Categories = []Category{
	CategoryFrontend, CategoryBackend, CategoryDevOps, CategoryDesign,
	CategoryAnalytics, CategoryTesting, CategoryMobile, CategoryDatabase,
}

type ProjectKind string

const (
	ProjectWebApp     ProjectKind = "web_app"
	ProjectMobileApp  ProjectKind = "mobile_app"
	ProjectDesktopApp ProjectKind = "desktop_app"
	ProjectAPI        ProjectKind = "api"
	ProjectLanding    ProjectKind = "landing"
	ProjectEcommerce  ProjectKind = "ecommerce"
	ProjectCRM        ProjectKind = "crm"
	ProjectOther      ProjectKind = "other"
)

// ProjectKinds is the fixed, ordered set of project kinds the assistant accepts.
var ProjectKinds = []ProjectKind{
	ProjectWebApp, ProjectMobileApp, ProjectDesktopApp, ProjectAPI,
	ProjectLanding, ProjectEcommerce, ProjectCRM, ProjectOther,
}

// Label returns a human-readable name for the project kind.
func (k ProjectKind) Label() string {
	switch k {
	case ProjectWebApp:
		return "Web application"
	case ProjectMobileApp:
		return "Mobile application"
	case ProjectDesktopApp:
		return "Desktop application"
	case ProjectAPI:
		return "API / service"
	case ProjectLanding:
		return "Landing page"
	case ProjectEcommerce:
		return "Online store"
	case ProjectCRM:
		return "CRM / ERP system"
	default:
		return "Other"
	}
}

// CategoryNames returns Categories as plain strings.
func CategoryNames() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = string(c)
	}
	return out
}

// ProjectKindNames returns ProjectKinds as plain strings.
func ProjectKindNames() []string {
	out := make([]string, len(ProjectKinds))
	for i, k := range ProjectKinds {
		out[i] = string(k)
	}
	return out
}
