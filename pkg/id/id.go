package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generate returns a prefixed ULID, e.g. txn_01J8ZK....
func Generate(prefix string) string {
	u := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return prefix + "_" + u.String()
}

// TicketCode creates the human-readable admission code printed on a ticket.
// Eight random characters over a 33-symbol alphabet give ~1.4e12 codes, so
// collisions against the unique column are out of practical reach.
// Example: TKT-4821QXJZ
func TicketCode() string {
	const chars = "0123456789ABCDEFGHJKMNPQRSTUVWXYZ" // no I/L/O, avoids misreads

	b := make([]byte, 8)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		b[i] = chars[n.Int64()]
	}

	return fmt.Sprintf("TKT-%s", string(b))
}
