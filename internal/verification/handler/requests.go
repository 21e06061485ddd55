package handler

import (
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	s "mediguard/pkg/platform/strings"
	"mediguard/pkg/platform/validation"
)

// CreateRequestBody accepts either an explicit predicate or a catalog key.
type CreateRequestBody struct {
	ProviderID   string               `json:"provider_id" validate:"required,max=64"`
	ProviderName string               `json:"provider_name" validate:"max=200"`
	ProviderType string               `json:"provider_type" validate:"max=50"`
	Predicate    *predicate.Predicate `json:"predicate" validate:"required_without=CatalogKey"`
	CatalogKey   string               `json:"catalog_key" validate:"excluded_with=Predicate"`
}

func (r *CreateRequestBody) Normalize() {
	s.TrimAll(&r.ProviderID, &r.ProviderName, &r.ProviderType, &r.CatalogKey)
}

func (r *CreateRequestBody) Validate() error {
	return validation.Struct(r)
}

// toModel resolves the catalog key, if any, and parses the provider ID.
func (r *CreateRequestBody) toModel() (models.CreateRequest, error) {
	providerID, err := id.ParseProviderID(r.ProviderID)
	if err != nil {
		return models.CreateRequest{}, err
	}

	var p predicate.Predicate
	if r.Predicate != nil {
		p = *r.Predicate
	} else {
		p, err = predicate.FromCatalogKey(r.CatalogKey)
		if err != nil {
			return models.CreateRequest{}, err
		}
	}

	return models.CreateRequest{
		ProviderID:   providerID,
		ProviderName: r.ProviderName,
		ProviderType: r.ProviderType,
		Predicate:    p,
	}, nil
}

// SubmitProofBody is posted by the holder's wallet.
type SubmitProofBody struct {
	RequestID          string            `json:"request_id" validate:"required,uuid"`
	Proof              string            `json:"proof" validate:"required,notblank"`
	RevealedAttributes map[string]string `json:"revealed_attributes"`
	IssuerPublicKey    string            `json:"issuer_public_key" validate:"omitempty,base64rawurl"`
}

func (r *SubmitProofBody) Normalize() {
	s.TrimAll(&r.RequestID, &r.Proof, &r.IssuerPublicKey)
}

func (r *SubmitProofBody) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if err := validation.CheckStringLength("proof", r.Proof, validation.MaxProofLength); err != nil {
		return err
	}
	return validation.CheckAttributes("revealed_attributes", r.RevealedAttributes)
}

func (r *SubmitProofBody) toModel() (models.SubmitProofRequest, error) {
	requestID, err := id.ParseRequestID(r.RequestID)
	if err != nil {
		return models.SubmitProofRequest{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request_id")
	}
	return models.SubmitProofRequest{
		RequestID:          requestID,
		Proof:              r.Proof,
		RevealedAttributes: r.RevealedAttributes,
		IssuerPublicKey:    r.IssuerPublicKey,
	}, nil
}
