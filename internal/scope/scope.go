// Package scope resolves the effective (org, company) scope for a request
// from the caller's auth context. Cross-tenant probes resolve to not-found,
// never forbidden, so row existence does not leak across tenants.
package scope

import "errors"

// Roles a caller can hold within an organization.
const (
	RoleOrgAdmin      = "org_admin"
	RoleCompanyAdmin  = "company_admin"
	RoleCompanyMember = "company_member"
)

var (
	// ErrNotFound is returned for cross-tenant probes. Mapped to 404.
	ErrNotFound = errors.New("scope: not found")
	// ErrForbidden is returned when a company-bound action is attempted by
	// an org-level caller without the org_admin role. Mapped to 403.
	ErrForbidden = errors.New("scope: forbidden")
	// ErrCompanyRequired is returned when an org_admin omits company_id on
	// an endpoint that does not allow all_companies. Mapped to 400.
	ErrCompanyRequired = errors.New("scope: company_id required")
	// ErrAmbiguousScope is returned when all_companies=true is combined
	// with an explicit company_id. Mapped to 400.
	ErrAmbiguousScope = errors.New("scope: all_companies cannot be combined with company_id")
)

// AuthContext is produced by the external auth middleware for every
// authenticated request.
type AuthContext struct {
	OrgID      string
	UserID     string
	Role       string
	CompanyID  *string
	SuperAdmin bool
}

// Scope is the effective tenant scope of one request.
type Scope struct {
	OrgID        string
	CompanyID    *string
	AllCompanies bool
}

// Request carries the caller-supplied scope inputs of one request.
type Request struct {
	CompanyID    string
	AllCompanies bool
}

// Resolve computes the effective scope:
//   - A company-bound caller may only act within their company. A differing
//     company_id parameter resolves to ErrNotFound.
//   - An org-level caller must be org_admin (else ErrForbidden) and must
//     name a company_id, unless the endpoint allows all_companies=true.
//   - all_companies=true combined with company_id is ErrAmbiguousScope.
func Resolve(auth AuthContext, req Request, allowAllCompanies bool) (Scope, error) {
	if req.AllCompanies && req.CompanyID != "" {
		return Scope{}, ErrAmbiguousScope
	}

	if auth.CompanyID != nil {
		if req.AllCompanies {
			// Company-bound callers cannot widen their scope.
			return Scope{}, ErrNotFound
		}
		if req.CompanyID != "" && req.CompanyID != *auth.CompanyID {
			return Scope{}, ErrNotFound
		}
		companyID := *auth.CompanyID
		return Scope{OrgID: auth.OrgID, CompanyID: &companyID}, nil
	}

	if auth.Role != RoleOrgAdmin {
		return Scope{}, ErrForbidden
	}

	if req.AllCompanies {
		if !allowAllCompanies {
			return Scope{}, ErrCompanyRequired
		}
		return Scope{OrgID: auth.OrgID, AllCompanies: true}, nil
	}

	if req.CompanyID == "" {
		return Scope{}, ErrCompanyRequired
	}
	companyID := req.CompanyID
	return Scope{OrgID: auth.OrgID, CompanyID: &companyID}, nil
}
