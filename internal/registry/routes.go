package registry

import "net/http"

// Disposition is the content-disposition policy applied to a route's responses.
type Disposition int

const (
	// DispositionPassthrough keeps whatever the upstream sent.
	DispositionPassthrough Disposition = iota
	// DispositionAttachment forces a download prompt.
	DispositionAttachment
	// DispositionInline forces in-browser display and allows caching.
	DispositionInline
)

// Envelope selects the JSON shape of gateway-generated errors for a route.
// Callers already depend on the shape per endpoint, so both are kept.
type Envelope int

const (
	// EnvelopeStatus is {"status":"error","message":...,"service":...}.
	EnvelopeStatus Envelope = iota
	// EnvelopeLegacy is {"success":false,"error":...}.
	EnvelopeLegacy
)

// Identity query and header keys. Upstreams disagree on spelling, so every
// alias is sent.
var (
	IdentityQueryKeys  = []string{"user_id", "userId"}
	IdentityHeaderKeys = []string{"X-User-Id", "User-Id"}
	draftingQueryKeys  = []string{"user_id"}
)

// Injection lists where the resolved identity is written on the outgoing request.
type Injection struct {
	QueryKeys  []string
	HeaderKeys []string
}

// QueryDefault is a query parameter added when the caller did not send it.
type QueryDefault struct {
	Key   string
	Value string
}

// Drafting query defaults.
var draftingDefaults = []QueryDefault{
	{"mode", "new"},
	{"document_type", "general"},
	{"language", "en"},
}

// Route describes how one inbound endpoint is forwarded.
type Route struct {
	Path    string
	Methods []string // empty means any method
	Family  Family
	Param   string // echo path parameter holding the remainder; empty for fixed paths

	Identity    Injection
	BufferJSON  bool
	Disposition Disposition
	Envelope    Envelope

	// QueryDefaults are applied before identity injection, in order.
	QueryDefaults []QueryDefault
	// ForceQuery values override whatever the caller sent.
	ForceQuery []QueryDefault
	// RequireDocumentIDForImprove rejects mode=improve without a document_id.
	RequireDocumentIDForImprove bool
}

// Service returns the tag of the upstream this route forwards to.
func (r Route) Service() string {
	return ServiceOf(r.Family)
}

// Routes returns the gateway route table.
func Routes() []Route {
	post := []string{http.MethodPost}
	get := []string{http.MethodGet}

	return []Route{
		{
			Path:     "/api/analyzer/*",
			Family:   FamilyAnalyzer,
			Param:    "*",
			Identity: Injection{QueryKeys: IdentityQueryKeys},
		},
		{Path: "/api/auth/*", Family: FamilyAuth, Param: "*", BufferJSON: true},
		{Path: "/api/cases", Family: FamilyCases, BufferJSON: true},
		{Path: "/api/cases/*", Family: FamilyCases, Param: "*", BufferJSON: true},
		{
			Path:        "/api/documents/:id/download",
			Methods:     get,
			Family:      FamilyDocumentDownload,
			Param:       "id",
			Disposition: DispositionAttachment,
			Envelope:    EnvelopeLegacy,
		},
		{
			Path:        "/api/documents/:id/preview",
			Methods:     get,
			Family:      FamilyDocumentPreview,
			Param:       "id",
			Disposition: DispositionInline,
			Envelope:    EnvelopeLegacy,
		},
		{Path: "/api/documents/*", Family: FamilyDocuments, Param: "*"},
		{
			Path:       "/api/legal-research/*",
			Family:     FamilyLegalResearch,
			Param:      "*",
			BufferJSON: true,
			Identity: Injection{
				QueryKeys:  IdentityQueryKeys,
				HeaderKeys: IdentityHeaderKeys,
			},
		},
		{Path: "/api/user", Family: FamilyUser, BufferJSON: true},
		{
			Path:                        "/api/drafting/upload",
			Methods:                     post,
			Family:                      FamilyDraftingUpload,
			Identity:                    Injection{QueryKeys: draftingQueryKeys},
			Envelope:                    EnvelopeLegacy,
			QueryDefaults:               draftingDefaults,
			RequireDocumentIDForImprove: true,
		},
		{
			Path:                        "/api/drafting/improve",
			Methods:                     post,
			Family:                      FamilyDraftingImprove,
			Identity:                    Injection{QueryKeys: draftingQueryKeys},
			BufferJSON:                  true,
			Envelope:                    EnvelopeLegacy,
			QueryDefaults:               draftingDefaults,
			ForceQuery:                  []QueryDefault{{"mode", "improve"}},
			RequireDocumentIDForImprove: true,
		},
		{
			Path:                        "/api/drafting/voice-chat",
			Methods:                     post,
			Family:                      FamilyDraftingVoiceChat,
			Identity:                    Injection{QueryKeys: draftingQueryKeys},
			Envelope:                    EnvelopeLegacy,
			QueryDefaults:               draftingDefaults,
			RequireDocumentIDForImprove: true,
		},
	}
}
