package domain

// ConnectionType describes how a network-A probe reached its target.
type ConnectionType string

const (
	ConnectionSSL           ConnectionType = "SSL"
	ConnectionSSLSelfSigned ConnectionType = "SSL (self-signed)"
	ConnectionPlaintext     ConnectionType = "Plaintext"
	ConnectionTor           ConnectionType = "Tor"
)

// ResponseData is the decoded shape of a ProbeResult's opaque
// response_data blob. Fields are optional by construction: a given
// probe only populates the subset relevant to its module and outcome.
// Zero values (Height == 0, empty Error) carry the "unknown"/"no
// error" meaning the data model assigns them.
type ResponseData struct {
	// Common across both protocol families.
	Host          string   `json:"host"`
	Port          int      `json:"port"`
	Height        uint64   `json:"height"`
	ServerVersion string   `json:"server_version,omitempty"`
	PingMs        float64  `json:"ping"`
	Error         string   `json:"error,omitempty"`
	ErrorType     string   `json:"error_type,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	LastUpdated   string   `json:"last_updated,omitempty"`
	ResolvedIPs   []string `json:"resolved_ips,omitempty"`

	// Network-A (electrum-like) specific.
	Bits           uint32         `json:"bits,omitempty"`
	MerkleRoot     string         `json:"merkle_root,omitempty"`
	Nonce          uint32         `json:"nonce,omitempty"`
	PrevBlock      string         `json:"prev_block,omitempty"`
	Timestamp      uint32         `json:"timestamp,omitempty"`
	TLSVersion     string         `json:"tls_version,omitempty"`
	SelfSigned     bool           `json:"self_signed,omitempty"`
	ConnectionType ConnectionType `json:"connection_type,omitempty"`

	// Network-B (lightwalletd-like) specific.
	Vendor                  string `json:"vendor,omitempty"`
	GitCommit               string `json:"git_commit,omitempty"`
	ChainName               string `json:"chain_name,omitempty"`
	SaplingActivationHeight uint64 `json:"sapling_activation_height,omitempty"`
	ConsensusBranchID       string `json:"consensus_branch_id,omitempty"`
	TaddrSupport            bool   `json:"taddr_support,omitempty"`
	EstimatedHeight         uint64 `json:"estimated_height,omitempty"`
	ZcashdBuild             string `json:"zcashd_build,omitempty"`
	ZcashdSubversion        string `json:"zcashd_subversion,omitempty"`
	DonationAddress         string `json:"donation_address,omitempty"`
}

// HasError reports whether the response carries any error annotation.
func (r ResponseData) HasError() bool {
	return r.Error != "" || r.ErrorType != "" || r.ErrorMessage != ""
}

// ImpliedStatus derives the status the data model's invariant assigns
// to this response: online iff Height > 0 and no error is set.
func (r ResponseData) ImpliedStatus() Status {
	if r.Height > 0 && !r.HasError() {
		return StatusOnline
	}
	return StatusOffline
}
