package validation

import (
	"net"
	"strings"

	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"
)

// HostPort validates a network address of the form "host" or "host:port" with no scheme or path.
var HostPort = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_host_port_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}

	invalid := validation.NewError("validation_host_port", "must be a host or host:port address")

	if strings.ContainsAny(s, "/?#@ \t") {
		return invalid
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		if strings.Contains(s, ":") && !strings.HasPrefix(s, "[") {
			return invalid
		}
		host = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	} else if port == "" || is.Port.Validate(port) != nil {
		return invalid
	}

	if host == "" || is.Host.Validate(host) != nil {
		return invalid
	}
	return nil
})
