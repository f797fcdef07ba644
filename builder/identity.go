// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package builder

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/opa-ndc-plugin/ndc"
	"github.com/open-policy-agent/opa-ndc-plugin/ndcid"
)

// identities maps the ids a caller used in its request to the ids written on
// the wire. Lookups accept any form of a segment id.
type identities struct {
	source ndcid.IdentitySource

	segments   []ndcid.SegmentForms
	segmentIdx map[string]int

	journeys   []string
	journeyIdx map[string]int

	pax    []string
	paxIdx map[string]int
	ptc    map[string]ndc.PaxType
}

// resolveIdentities classifies the request's identity source from its segment
// ids and assigns wire ids to every segment, journey and passenger.
func resolveIdentities(segments []ndc.Segment, journeys []ndc.Journey, passengers []ndc.Passenger) (*identities, error) {
	raw := make([]string, 0, len(segments))
	for _, s := range segments {
		raw = append(raw, s.SegmentID)
	}

	ids := &identities{
		source:     ndcid.ClassifyIdentitySource(raw...),
		segmentIdx: map[string]int{},
		journeyIdx: map[string]int{},
		paxIdx:     map[string]int{},
		ptc:        map[string]ndc.PaxType{},
	}

	for i, s := range segments {
		if ids.source == ndcid.OrderContinuation {
			ids.segments = append(ids.segments, ndcid.NormalizeSegmentID(s.SegmentID))
		} else {
			ids.segments = append(ids.segments, ndcid.NormalizeSegmentID(ndcid.SyntheticID(ndcid.KindSegment, i+1)))
		}
		if err := claim(ids.segmentIdx, "segment", i, s.SegmentID, ndcid.NormalizeSegmentID(s.SegmentID).Clean); err != nil {
			return nil, err
		}
	}
	for i, forms := range ids.segments {
		alias(ids.segmentIdx, i, forms.Clean, forms.Marketing, forms.Operating)
	}

	for i, j := range journeys {
		id := j.JourneyID
		if ids.source == ndcid.Standalone || id == "" {
			id = ndcid.SyntheticID(ndcid.KindJourney, i+1)
		}
		ids.journeys = append(ids.journeys, id)
		if err := claim(ids.journeyIdx, "journey", i, j.JourneyID); err != nil {
			return nil, err
		}
	}
	for i, id := range ids.journeys {
		alias(ids.journeyIdx, i, id)
	}

	perType := map[ndc.PaxType]int{}
	for i, p := range passengers {
		if !p.Type.Valid() {
			return nil, ndc.Errorf(ndc.InvalidRequestErr, "passenger %q has unsupported type %q", p.PaxID, p.Type)
		}
		synthetic := ndcid.SyntheticPaxID(string(p.Type), perType[p.Type])
		perType[p.Type]++

		id := p.PaxID
		if ids.source == ndcid.Standalone || id == "" {
			id = synthetic
		}
		ids.pax = append(ids.pax, id)
		ids.ptc[id] = p.Type
		if err := claim(ids.paxIdx, "passenger", i, p.PaxID); err != nil {
			return nil, err
		}
	}
	for i, id := range ids.pax {
		alias(ids.paxIdx, i, id)
	}

	logrus.WithFields(logrus.Fields{
		"identity-source": ids.source.String(),
		"segments":        len(ids.segments),
		"journeys":        len(ids.journeys),
		"passengers":      len(ids.pax),
	}).Debug("Resolved NDC identifiers.")

	return ids, nil
}

// claim indexes the ids a caller declared. Declaring the same id for two
// entries is an error.
func claim(idx map[string]int, kind string, i int, keys ...string) error {
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if prev, ok := idx[key]; ok && prev != i {
			return ndc.Errorf(ndc.InvalidRequestErr, "%s id %q declared twice", kind, key)
		}
		idx[key] = i
	}
	return nil
}

// alias indexes wire ids that were not already claimed by a caller id.
func alias(idx map[string]int, i int, keys ...string) {
	for _, key := range keys {
		if _, ok := idx[key]; !ok && key != "" {
			idx[key] = i
		}
	}
}

// segment returns the wire forms of the segment a caller referred to.
func (ids *identities) segment(ref string) (ndcid.SegmentForms, error) {
	if i, ok := ids.segmentIdx[ref]; ok {
		return ids.segments[i], nil
	}
	if i, ok := ids.segmentIdx[ndcid.NormalizeSegmentID(ref).Clean]; ok {
		return ids.segments[i], nil
	}
	return ndcid.SegmentForms{}, ndc.Errorf(ndc.UnresolvedReferenceErr, "segment %q is not declared", ref)
}

func (ids *identities) journey(ref string) (string, error) {
	if i, ok := ids.journeyIdx[ref]; ok {
		return ids.journeys[i], nil
	}
	return "", ndc.Errorf(ndc.UnresolvedReferenceErr, "journey %q is not declared", ref)
}

func (ids *identities) passenger(ref string) (string, ndc.PaxType, error) {
	if i, ok := ids.paxIdx[ref]; ok {
		id := ids.pax[i]
		return id, ids.ptc[id], nil
	}
	return "", "", ndc.Errorf(ndc.UnresolvedReferenceErr, "passenger %q is not declared", ref)
}

// passengers resolves refs, or every declared passenger when refs is empty.
func (ids *identities) passengers(refs []string) ([]string, error) {
	if len(refs) == 0 {
		return append([]string(nil), ids.pax...), nil
	}
	out := make([]string, 0, len(refs))
	seen := map[string]bool{}
	for _, ref := range refs {
		id, _, err := ids.passenger(ref)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}
