package domains

// DefaultShortThreshold splits short from long domains, in residues.
const DefaultShortThreshold = 100

type intervalKey struct {
	acc        string
	start, end int
}

// Deduplicate drops intervals whose (accession, start, end) was already
// seen, keeping the first occurrence and the input order. Sentinels of the
// same accession share a key and collapse too.
func Deduplicate(in []DomainInterval) (out []DomainInterval, dropped int) {
	seen := make(map[intervalKey]struct{}, len(in))
	out = make([]DomainInterval, 0, len(in))
	for _, iv := range in {
		k := intervalKey{iv.Accession, iv.Start, iv.End}
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, iv)
	}
	return out, dropped
}

// Partition splits intervals with coordinates into short (DomainLen <
// threshold) and long (DomainLen >= threshold). Sentinels go to neither.
func Partition(in []DomainInterval, threshold int) (short, long []DomainInterval) {
	if threshold <= 0 {
		threshold = DefaultShortThreshold
	}
	for _, iv := range in {
		if iv.IsSentinel() {
			continue
		}
		if iv.DomainLen < threshold {
			short = append(short, iv)
		} else {
			long = append(long, iv)
		}
	}
	return short, long
}

// Sentinels returns the sentinel intervals of in.
func Sentinels(in []DomainInterval) []DomainInterval {
	var out []DomainInterval
	for _, iv := range in {
		if iv.IsSentinel() {
			out = append(out, iv)
		}
	}
	return out
}

// DistinctAccessions counts accessions that have at least one interval with
// coordinates.
func DistinctAccessions(in []DomainInterval) int {
	seen := make(map[string]struct{})
	for _, iv := range in {
		if !iv.IsSentinel() {
			seen[iv.Accession] = struct{}{}
		}
	}
	return len(seen)
}
