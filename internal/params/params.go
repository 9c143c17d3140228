package params

const (
	// SecParam is the computational security parameter in bits.
	SecParam = 256
	SecBytes = SecParam / 8

	// StatParam is the statistical security parameter in bits.
	// Scalars derived from a byte stream read StatParam extra bits before reducing
	// modulo the group order, so the bias of the reduction is at most 2⁻ˢᵗᵃᵗ.
	StatParam = 128
	StatBytes = StatParam / 8

	// SessionIDBytes is the length of the random identifiers handed out by the issuer service.
	SessionIDBytes = 16
)
