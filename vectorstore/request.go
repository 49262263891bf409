// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectorstore

// SearchRequest is the immutable, validated input to Index.TopN /
// Index.TopNIDs.
type SearchRequest struct {
	query            string
	samples          uint64
	threshold        *float64
	additionalParams map[string]any
	filter           *SearchFilter
}

// Query is the text to embed and use for similarity search.
func (r SearchRequest) Query() string { return r.query }

// Samples is the maximum number of results that may be returned.
func (r SearchRequest) Samples() uint64 { return r.samples }

// Threshold is the minimum score a result must meet, if set.
func (r SearchRequest) Threshold() (float64, bool) {
	if r.threshold == nil {
		return 0, false
	}
	return *r.threshold, true
}

// AdditionalParams returns adapter-specific parameters, if any.
func (r SearchRequest) AdditionalParams() map[string]any { return r.additionalParams }

// Filter returns the structured predicate to additionally apply, if
// any.
func (r SearchRequest) Filter() *SearchFilter { return r.filter }

// RequestBuilder constructs a SearchRequest: query and samples are
// required, and additional params must be a JSON object shape (a Go
// map) if present.
type RequestBuilder struct {
	query            string
	querySet         bool
	samples          uint64
	samplesSet       bool
	threshold        *float64
	additionalParams map[string]any
	filter           *SearchFilter
}

// NewRequestBuilder starts an empty builder.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{}
}

func (b *RequestBuilder) Query(query string) *RequestBuilder {
	b.query = query
	b.querySet = true
	return b
}

func (b *RequestBuilder) Samples(n uint64) *RequestBuilder {
	b.samples = n
	b.samplesSet = true
	return b
}

func (b *RequestBuilder) Threshold(t float64) *RequestBuilder {
	b.threshold = &t
	return b
}

func (b *RequestBuilder) AdditionalParams(params map[string]any) *RequestBuilder {
	b.additionalParams = params
	return b
}

func (b *RequestBuilder) Filter(f SearchFilter) *RequestBuilder {
	b.filter = &f
	return b
}

// Build validates and returns the SearchRequest.
func (b *RequestBuilder) Build() (SearchRequest, error) {
	if !b.querySet {
		return SearchRequest{}, BuilderError("`query` is required to build a vector search request")
	}
	if !b.samplesSet {
		return SearchRequest{}, BuilderError("`samples` is required to build a vector search request")
	}
	return SearchRequest{
		query:            b.query,
		samples:          b.samples,
		threshold:        b.threshold,
		additionalParams: b.additionalParams,
		filter:           b.filter,
	}, nil
}
