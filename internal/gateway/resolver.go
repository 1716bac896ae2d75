package gateway

import (
	"context"

	"smartpos/internal/domain"
)

// outcome tags one resolver attempt. The pipeline picks the first granted and
// otherwise distinguishes "some space answered and said no" (403) from "no
// space could answer" (401).
type outcome int

const (
	granted outcome = iota
	denied
	unreachable
)

// roleResolver asks one identity space for the caller's role and checks it
// against the route's allow-set.
type roleResolver struct {
	space  domain.Space
	client IdentityClient
}

func (r roleResolver) resolve(ctx context.Context, authHeader string, allowed []string) (outcome, string) {
	role, err := r.client.Role(ctx, authHeader)
	if err != nil {
		return unreachable, ""
	}
	for _, a := range allowed {
		if role == a {
			return granted, role
		}
	}
	return denied, role
}
