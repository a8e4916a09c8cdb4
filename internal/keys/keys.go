// Package keys maps entity identities and relationships to store addresses.
// Everything here is pure.
package keys

import (
	"errors"
	"fmt"
	"strings"

	"rfpdesk/api/internal/store"
)

type Kind string

const (
	User             Kind = "USER"
	RFP              Kind = "RFP"
	Proposal         Kind = "PROPOSAL"
	Attachment       Kind = "ATTACHMENT"
	Template         Kind = "TEMPLATE"
	Company          Kind = "COMPANY"
	TeamMember       Kind = "TEAM_MEMBER"
	ProjectReference Kind = "PROJECT_REFERENCE"
	PastProject      Kind = "PAST_PROJECT"
	Integration      Kind = "INTEGRATION"
)

// Sort keys of singleton items.
const (
	ProfileSK     = "PROFILE"
	ReservationSK = "RESERVATION"
	TokenSK       = "TOKEN"
)

const separator = "#"

var ErrInvalidKeyPart = errors.New("invalid key part")

// ReservationField names a uniquely reserved user attribute.
type ReservationField string

const (
	Username ReservationField = "USERNAME"
	Email    ReservationField = "EMAIL"
)

func join(parts ...string) string {
	return strings.Join(parts, separator)
}

// check rejects blank parts and parts containing the separator, which would
// let one key's prefix reach into another's.
func check(parts ...string) error {
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty component", ErrInvalidKeyPart)
		}
		if strings.Contains(p, separator) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKeyPart, p, separator)
		}
	}
	return nil
}

// Primary addresses the profile item of an entity.
func Primary(kind Kind, id string) (store.Key, error) {
	if err := check(string(kind), id); err != nil {
		return store.Key{}, err
	}
	return store.Key{PK: join(string(kind), id), SK: ProfileSK}, nil
}

// Child addresses an item stored under its owner's partition.
func Child(owner Kind, ownerID string, child Kind, childID string) (store.Key, error) {
	if err := check(string(owner), ownerID, string(child), childID); err != nil {
		return store.Key{}, err
	}
	return store.Key{PK: join(string(owner), ownerID), SK: join(string(child), childID)}, nil
}

// ChildPrefix returns the owner partition and the sort-key prefix that lists
// all children of one kind.
func ChildPrefix(owner Kind, ownerID string, child Kind) (partition, prefix string, err error) {
	if err := check(string(owner), ownerID, string(child)); err != nil {
		return "", "", err
	}
	return join(string(owner), ownerID), string(child) + separator, nil
}

// IndexPartition is the secondary-index partition that lists a kind.
func IndexPartition(kind Kind) string {
	return string(kind)
}

// IndexSort orders by timestamp and breaks ties on id.
func IndexSort(timestamp, id string) string {
	return join(timestamp, id)
}

// Reservation addresses the guard item for a normalized unique value.
func Reservation(field ReservationField, value string) (store.Key, error) {
	if err := check(string(field), value); err != nil {
		return store.Key{}, err
	}
	return store.Key{PK: join(string(field), value), SK: ReservationSK}, nil
}

// ResetToken addresses a password-reset token by the hash of its secret.
func ResetToken(secretHash string) (store.Key, error) {
	if err := check(secretHash); err != nil {
		return store.Key{}, err
	}
	return store.Key{PK: join("RESET", secretHash), SK: TokenSK}, nil
}

// IntegrationKey addresses one record of an external-tool integration.
// The sort key is INTEGRATION#<provider>#<recordKind>#<name>.
func IntegrationKey(owner Kind, ownerID, provider, recordKind, name string) (store.Key, error) {
	if err := check(string(owner), ownerID, provider, recordKind, name); err != nil {
		return store.Key{}, err
	}
	return store.Key{
		PK: join(string(owner), ownerID),
		SK: join(string(Integration), provider, recordKind, name),
	}, nil
}

// IntegrationPrefix lists integration records of an owner. recordKind may be
// empty to list every kind for the provider.
func IntegrationPrefix(owner Kind, ownerID, provider, recordKind string) (partition, prefix string, err error) {
	if err := check(string(owner), ownerID, provider); err != nil {
		return "", "", err
	}
	prefix = join(string(Integration), provider) + separator
	if recordKind != "" {
		if err := check(recordKind); err != nil {
			return "", "", err
		}
		prefix += recordKind + separator
	}
	return join(string(owner), ownerID), prefix, nil
}
