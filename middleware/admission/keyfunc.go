package admission

import (
	"net"
	"net/http"
	"strings"

	"devtools-api/middleware/admission/domain"
)

// KeyFunc extrai a identidade do cliente usada no rate limit.
type KeyFunc func(r *http.Request) domain.ClientID

// DefaultKeyFunc usa, nesta ordem: o header configurado, o primeiro IP do
// X-Forwarded-For (só se trustXFF) e o host de RemoteAddr.
//
// A identidade é só para justiça entre clientes; quem autentica é a API key.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) domain.ClientID {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return domain.ClientID(v)
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return domain.ClientID(ip)
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return domain.ClientID(host)
		}
		if r.RemoteAddr != "" {
			return domain.ClientID(r.RemoteAddr)
		}
		return "unknown"
	}
}
