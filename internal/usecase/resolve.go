package usecase

import (
	"strings"

	"github.com/semmidev/dbwarden/internal/domain"
)

// ResolveTarget builds the backup descriptor for one container. Values are
// merged per key: built-in defaults, then globals, then the container's own
// labels. imageRefs are the image names tried for "auto" detection.
func ResolveTarget(c domain.Container, imageRefs []string, globals domain.LabelValues) (domain.BackupTarget, error) {
	values := domain.DefaultLabels().
		Merge(globals).
		Merge(domain.FromContainerLabels(c.Labels))

	target := domain.BackupTarget{
		ContainerID:          c.ID,
		Name:                 c.Name,
		Host:                 domain.TargetAlias,
		Username:             values[domain.LabelUsername],
		Password:             values[domain.LabelPassword],
		Token:                values[domain.LabelToken],
		EncryptionPassphrase: values[domain.LabelEncryptionPassphrase],
		Engine:               resolveEngine(values[domain.LabelType], imageRefs),
	}

	port, err := resolvePort(values[domain.LabelPort], target.Engine)
	if err != nil {
		return target, err
	}
	target.Port = port

	compress, err := domain.ParseBool(domain.LabelPrefix+domain.LabelCompress, values[domain.LabelCompress])
	if err != nil {
		return target, err
	}
	target.Compress = compress

	return target, nil
}

func resolveEngine(typeLabel string, imageRefs []string) domain.Engine {
	if engine, ok := domain.ParseEngine(typeLabel); ok {
		return engine
	}
	if !strings.EqualFold(strings.TrimSpace(typeLabel), domain.EngineAuto) {
		return domain.EngineUnknown
	}
	engine, _ := domain.MatchImage(imageRefs)
	return engine
}

func resolvePort(raw string, engine domain.Engine) (int, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "auto") {
		return engine.DefaultPort(), nil
	}
	return domain.ParseNonNegative(domain.LabelPrefix+domain.LabelPort, raw)
}
