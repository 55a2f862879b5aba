package provider

import (
	"strconv"
	"strings"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/cas"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

const manifestFileName = "manifest.cbor"

// UpdatesProvider serves /updates/<epoch>/{chunks/<hex>,manifest.cbor} over
// a cas.Store (spec §4.5/§4.9).
type UpdatesProvider struct {
	baseProvider
	store *cas.Store
}

// NewUpdatesProvider builds the /updates provider over store.
func NewUpdatesProvider(store *cas.Store) *UpdatesProvider {
	return &UpdatesProvider{baseProvider: baseProvider{mount: "/updates"}, store: store}
}

func splitEpochRel(rel string) (epoch uint64, leaf string, err error) {
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 {
		return 0, "", apperr.New(apperr.NotFound, "no such updates path %q", rel)
	}
	epoch, perr := strconv.ParseUint(parts[0], 10, 64)
	if perr != nil {
		return 0, "", apperr.New(apperr.Invalid, "illegal epoch %q", parts[0])
	}
	return epoch, parts[1], nil
}

func (p *UpdatesProvider) Resolve(rel string) (wire.Qid, error) {
	if rel == "" {
		return wire.Qid{Type: wire.QidDir}, nil
	}
	_, leaf, err := splitEpochRel(rel)
	if err != nil {
		if _, convErr := strconv.ParseUint(rel, 10, 64); convErr == nil {
			return wire.Qid{Type: wire.QidDir}, nil
		}
		return wire.Qid{}, err
	}
	switch {
	case leaf == manifestFileName:
		return wire.Qid{Type: wire.QidFile}, nil
	case leaf == "chunks":
		return wire.Qid{Type: wire.QidDir}, nil
	case strings.HasPrefix(leaf, "chunks/"):
		hexName := strings.TrimPrefix(leaf, "chunks/")
		if err := cas.ValidateHexName(hexName); err != nil {
			return wire.Qid{}, err
		}
		return wire.Qid{Type: wire.QidFile}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such updates path %q", leaf)
	}
}

func (p *UpdatesProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	return nil, nil
}

func (p *UpdatesProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	epoch, leaf, err := splitEpochRel(rel)
	if err != nil {
		return nil, err
	}
	switch {
	case leaf == manifestFileName:
		body, err := p.store.ManifestBytes(epoch)
		if err != nil {
			return nil, err
		}
		return bytesSlice(body, offset, count), nil
	case strings.HasPrefix(leaf, "chunks/"):
		hexName := strings.TrimPrefix(leaf, "chunks/")
		data, err := p.store.GetChunk(hexName)
		if err != nil {
			return nil, err
		}
		return bytesSlice(data, offset, count), nil
	default:
		return nil, apperr.New(apperr.NotFound, "no such updates path %q", leaf)
	}
}

func (p *UpdatesProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	epoch, leaf, err := splitEpochRel(rel)
	if err != nil {
		return 0, err
	}
	switch {
	case leaf == manifestFileName:
		m, err := cas.DecodeManifest(data)
		if err != nil {
			return 0, err
		}
		if err := p.store.CommitManifest(epoch, m); err != nil {
			return 0, err
		}
		return uint32(len(data)), nil
	case strings.HasPrefix(leaf, "chunks/"):
		hexName := strings.TrimPrefix(leaf, "chunks/")
		if err := cas.ValidateHexName(hexName); err != nil {
			return 0, err
		}
		if cas.Sha256Hex(data) != hexName {
			return 0, apperr.New(apperr.Invalid, "chunk body hashes to %s, path names %s", cas.Sha256Hex(data), hexName)
		}
		if err := p.store.PutChunk(hexName, data); err != nil {
			return 0, err
		}
		return uint32(len(data)), nil
	default:
		return 0, apperr.New(apperr.NotFound, "no such updates path %q", leaf)
	}
}
