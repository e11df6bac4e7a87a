package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"

	"knowra/apps/indexer/internal/knowledge"
)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureCollection creates the class for a collection if it does not exist
// and adds any properties missing from an existing class. Vectors are
// supplied at write time, so the class carries no vectorizer.
func EnsureCollection(ctx context.Context, client SchemaClient, col knowledge.Collection) error {
	className := col.Class()
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := propertiesFor(col.Type)

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "Content-addressed document chunks",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}

func propertiesFor(t knowledge.Type) []*models.Property {
	fields := t.Schema()
	properties := make([]*models.Property, 0, len(fields))
	for _, f := range fields {
		properties = append(properties, &models.Property{
			Name:     f.Name,
			DataType: []string{f.DataType},
		})
	}
	return properties
}
