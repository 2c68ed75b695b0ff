package domain

// AuthTypes lists the accepted authentication types of a registered data endpoint.
var AuthTypes = []string{"none", "basic", "bearer", "apikey", "oauth2"}

// DefaultAuthType is used when a data registration omits auth_type.
const DefaultAuthType = "none"

// Request is a validated orchestration request. It is one of ServiceRequest,
// DataRequest or CombinedRequest.
type Request interface {
	Type() Type
	isRequest()
}

// TransferSpec describes one transfer to drive through the connector.
type TransferSpec struct {
	ContractID          string
	CounterPartyAddress string
	ConnectorID         string
	AssetID             string
	Properties          map[string]any
}

// ServiceRequest pulls the data behind a single contract agreement.
type ServiceRequest struct {
	Transfer TransferSpec
}

// Type implements Request.
func (ServiceRequest) Type() Type { return TypeService }

func (ServiceRequest) isRequest() {}

// DataRequest registers a directly reachable data endpoint without contacting the connector.
type DataRequest struct {
	Endpoint   string
	AuthType   string
	Properties map[string]any
}

// Type implements Request.
func (DataRequest) Type() Type { return TypeData }

func (DataRequest) isRequest() {}

// CombinedRequest pulls several contract agreements, one after the other.
type CombinedRequest struct {
	Entries    []TransferSpec
	Properties map[string]any
}

// Type implements Request.
func (CombinedRequest) Type() Type { return TypeCombined }

func (CombinedRequest) isRequest() {}
