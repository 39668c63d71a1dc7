package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"gpsr/internal/domain/accesscontrol"
	"gpsr/internal/domain/categories"
	"gpsr/internal/domain/products"
	"gpsr/internal/domain/suppliers"
	"gpsr/internal/visibility"

	"github.com/google/uuid"
)

// guard enforces the ownership rule for mutations: absent rows are NotFound,
// rows owned by somebody else are Forbidden.
func guard(caller, owner uuid.UUID) error {
	if caller == uuid.Nil {
		return ErrUnauthenticated
	}
	if owner != caller {
		return ErrForbidden
	}
	return nil
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// grantedSet loads caller's grants only when the resolver would use them.
func (s *Service) grantedSet(ctx context.Context, caller uuid.UUID, rt accesscontrol.ResourceType) (map[uuid.UUID]bool, error) {
	if !s.resolver.GrantAware || caller == uuid.Nil {
		return nil, nil
	}
	return s.store.Ledger.GrantedResourceIDs(ctx, caller, rt)
}

func (s *Service) granted(ctx context.Context, caller, owner uuid.UUID, rt accesscontrol.ResourceType, id uuid.UUID) (bool, error) {
	if !s.resolver.GrantAware || caller == uuid.Nil || caller == owner {
		return false, nil
	}
	return s.store.Ledger.HasGrant(ctx, caller, rt, id)
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

type CategoryInput struct {
	Name        string
	Description *string
	ParentID    *uuid.UUID
}

// ListCategories returns the caller's categories in full and everybody
// else's redacted.
func (s *Service) ListCategories(ctx context.Context, caller uuid.UUID) ([]*visibility.CategoryView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	rows, err := s.store.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantedSet(ctx, caller, accesscontrol.ResourceCategory)
	if err != nil {
		return nil, err
	}

	owners := make([]uuid.UUID, 0, len(rows))
	for _, c := range rows {
		owners = append(owners, c.OwnerID)
	}
	names := s.userNames(ctx, owners)

	out := make([]*visibility.CategoryView, 0, len(rows))
	for _, c := range rows {
		out = append(out, s.resolver.Category(caller, c, names[c.OwnerID], grants[c.ID]))
	}
	return out, nil
}

// CategoryTree nests the caller's visible category list.
func (s *Service) CategoryTree(ctx context.Context, caller uuid.UUID) ([]*categories.TreeNode[*visibility.CategoryView], error) {
	views, err := s.ListCategories(ctx, caller)
	if err != nil {
		return nil, err
	}
	return categories.BuildTree(views, categories.DefaultMaxDepth), nil
}

func (s *Service) GetCategory(ctx context.Context, caller, id uuid.UUID) (*visibility.CategoryView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	c, err := s.store.Categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, categories.ErrCategoryNotFound)
	}
	granted, err := s.granted(ctx, caller, c.OwnerID, accesscontrol.ResourceCategory, id)
	if err != nil {
		return nil, err
	}
	name, _ := s.names.Name(ctx, c.OwnerID)
	return s.resolver.Category(caller, c, name, granted), nil
}

func (s *Service) CreateCategory(ctx context.Context, caller uuid.UUID, in CategoryInput) (*visibility.CategoryView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.ParentID != nil {
		if err := s.checkParent(ctx, caller, uuid.Nil, *in.ParentID); err != nil {
			return nil, err
		}
	}

	c, err := s.store.Categories.Create(ctx, &categories.Category{
		OwnerID:     caller,
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
	})
	if err != nil {
		return nil, err
	}
	name, _ := s.names.Name(ctx, caller)
	return s.resolver.Category(caller, c, name, false), nil
}

func (s *Service) UpdateCategory(ctx context.Context, caller, id uuid.UUID, p categories.Patch) (*visibility.CategoryView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	current, err := s.store.Categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, categories.ErrCategoryNotFound)
	}
	if err := guard(caller, current.OwnerID); err != nil {
		return nil, err
	}

	if p.Name.Set {
		p.Name.Value = strings.TrimSpace(p.Name.Value)
		if !p.Name.Valid || p.Name.Value == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
	}
	if p.ParentID.Set && p.ParentID.Valid {
		if err := s.checkParent(ctx, caller, id, p.ParentID.Value); err != nil {
			return nil, err
		}
	}

	c, err := s.store.Categories.Update(ctx, id, p)
	if err != nil {
		return nil, notFound(err, categories.ErrCategoryNotFound)
	}
	name, _ := s.names.Name(ctx, caller)
	return s.resolver.Category(caller, c, name, false), nil
}

// checkParent rejects a parent that does not exist, belongs to someone else,
// or would put id inside its own subtree. id is uuid.Nil for a new category.
func (s *Service) checkParent(ctx context.Context, caller, id, parentID uuid.UUID) error {
	cur := parentID
	for depth := 0; depth < categories.DefaultMaxDepth; depth++ {
		if cur == id {
			return fmt.Errorf("%w: a category cannot be its own ancestor", ErrValidation)
		}
		c, err := s.store.Categories.GetByID(ctx, cur)
		if err != nil {
			if errors.Is(err, categories.ErrCategoryNotFound) {
				if cur == parentID {
					return fmt.Errorf("%w: parent category does not exist", ErrValidation)
				}
				return nil
			}
			return err
		}
		if cur == parentID && c.OwnerID != caller {
			return fmt.Errorf("%w: categories can only be nested under your own categories", ErrValidation)
		}
		if c.ParentID == nil {
			return nil
		}
		cur = *c.ParentID
	}
	return fmt.Errorf("%w: category nesting is too deep", ErrValidation)
}

func (s *Service) DeleteCategory(ctx context.Context, caller, id uuid.UUID) error {
	if caller == uuid.Nil {
		return ErrUnauthenticated
	}
	current, err := s.store.Categories.GetByID(ctx, id)
	if err != nil {
		return notFound(err, categories.ErrCategoryNotFound)
	}
	if err := guard(caller, current.OwnerID); err != nil {
		return err
	}
	return notFound(s.store.Categories.Delete(ctx, id), categories.ErrCategoryNotFound)
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

func (s *Service) ListProducts(ctx context.Context, caller uuid.UUID, categoryID *uuid.UUID) ([]*visibility.ProductView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	rows, err := s.store.Products.List(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantedSet(ctx, caller, accesscontrol.ResourceProduct)
	if err != nil {
		return nil, err
	}

	owners := make([]uuid.UUID, 0, len(rows))
	for _, p := range rows {
		owners = append(owners, p.OwnerID)
	}
	names := s.userNames(ctx, owners)

	out := make([]*visibility.ProductView, 0, len(rows))
	for _, p := range rows {
		out = append(out, s.resolver.Product(caller, p, names[p.OwnerID], grants[p.ID]))
	}
	return out, nil
}

func (s *Service) GetProduct(ctx context.Context, caller, id uuid.UUID) (*visibility.ProductView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	p, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, products.ErrProductNotFound)
	}
	granted, err := s.granted(ctx, caller, p.OwnerID, accesscontrol.ResourceProduct, id)
	if err != nil {
		return nil, err
	}
	name, _ := s.names.Name(ctx, p.OwnerID)
	return s.resolver.Product(caller, p, name, granted), nil
}

// checkProductCategory requires the category to exist and belong to caller.
func (s *Service) checkProductCategory(ctx context.Context, caller, categoryID uuid.UUID) error {
	c, err := s.store.Categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, categories.ErrCategoryNotFound) {
			return fmt.Errorf("%w: category does not exist", ErrValidation)
		}
		return err
	}
	if c.OwnerID != caller {
		return fmt.Errorf("%w: products can only be filed under your own categories", ErrValidation)
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, caller uuid.UUID, in products.Product) (*visibility.ProductView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if in.CategoryID != nil {
		if err := s.checkProductCategory(ctx, caller, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	in.ID = uuid.Nil
	in.OwnerID = caller
	p, err := s.store.Products.Create(ctx, &in)
	if err != nil {
		return nil, err
	}
	name, _ := s.names.Name(ctx, caller)
	return s.resolver.Product(caller, p, name, false), nil
}

func (s *Service) UpdateProduct(ctx context.Context, caller, id uuid.UUID, patch products.Patch) (*visibility.ProductView, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	current, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, products.ErrProductNotFound)
	}
	if err := guard(caller, current.OwnerID); err != nil {
		return nil, err
	}
	if patch.CategoryID.Set && patch.CategoryID.Valid {
		if err := s.checkProductCategory(ctx, caller, patch.CategoryID.Value); err != nil {
			return nil, err
		}
	}

	p, err := s.store.Products.Update(ctx, id, patch)
	if err != nil {
		return nil, notFound(err, products.ErrProductNotFound)
	}
	name, _ := s.names.Name(ctx, caller)
	return s.resolver.Product(caller, p, name, false), nil
}

func (s *Service) DeleteProduct(ctx context.Context, caller, id uuid.UUID) error {
	if caller == uuid.Nil {
		return ErrUnauthenticated
	}
	current, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return notFound(err, products.ErrProductNotFound)
	}
	if err := guard(caller, current.OwnerID); err != nil {
		return err
	}
	return notFound(s.store.Products.Delete(ctx, id), products.ErrProductNotFound)
}

// UploadedFile is a stored product document.
type UploadedFile struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// UploadProductFile stores a document under <caller>/<unix millis>.<ext>.
// The returned path is what product document fields hold.
func (s *Service) UploadProductFile(ctx context.Context, caller uuid.UUID, filename string, r io.Reader) (*UploadedFile, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if s.blobs == nil {
		return nil, errors.New("file storage is not configured")
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: file name needs an extension", ErrValidation)
	}

	key := fmt.Sprintf("%s/%d.%s", caller, time.Now().UnixMilli(), ext)
	url, err := s.blobs.Upload(ctx, key, r)
	if err != nil {
		return nil, fmt.Errorf("upload product file: %w", err)
	}
	return &UploadedFile{Path: key, URL: url}, nil
}

// DeleteProductFile removes a document the caller uploaded. Paths are
// namespaced by uploader, so the prefix is the ownership check.
func (s *Service) DeleteProductFile(ctx context.Context, caller uuid.UUID, key string) error {
	if caller == uuid.Nil {
		return ErrUnauthenticated
	}
	if s.blobs == nil {
		return errors.New("file storage is not configured")
	}
	if !strings.HasPrefix(key, caller.String()+"/") || strings.Contains(key, "..") {
		return ErrForbidden
	}
	return s.blobs.Delete(ctx, key)
}

// ---------------------------------------------------------------------------
// Suppliers
// ---------------------------------------------------------------------------

type SupplierInput struct {
	Name          string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *string
	Notes         *string
}

// ListSuppliers only ever returns the caller's rows.
func (s *Service) ListSuppliers(ctx context.Context, caller uuid.UUID) ([]*suppliers.Supplier, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.store.Suppliers.ListByOwner(ctx, caller)
}

// GetSupplier reports other owners' suppliers as NotFound.
func (s *Service) GetSupplier(ctx context.Context, caller, id uuid.UUID) (*suppliers.Supplier, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	sup, err := s.store.Suppliers.GetByOwner(ctx, caller, id)
	if err != nil {
		return nil, notFound(err, suppliers.ErrSupplierNotFound)
	}
	return sup, nil
}

func (s *Service) CreateSupplier(ctx context.Context, caller uuid.UUID, in SupplierInput) (*suppliers.Supplier, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.store.Suppliers.Create(ctx, &suppliers.Supplier{
		OwnerID:       caller,
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		Notes:         in.Notes,
	})
}

func (s *Service) UpdateSupplier(ctx context.Context, caller, id uuid.UUID, p suppliers.Patch) (*suppliers.Supplier, error) {
	if caller == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	current, err := s.store.Suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, suppliers.ErrSupplierNotFound)
	}
	if err := guard(caller, current.OwnerID); err != nil {
		return nil, err
	}
	if p.Name.Set {
		p.Name.Value = strings.TrimSpace(p.Name.Value)
		if !p.Name.Valid || p.Name.Value == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
	}
	sup, err := s.store.Suppliers.Update(ctx, id, p)
	if err != nil {
		return nil, notFound(err, suppliers.ErrSupplierNotFound)
	}
	return sup, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, caller, id uuid.UUID) error {
	if caller == uuid.Nil {
		return ErrUnauthenticated
	}
	current, err := s.store.Suppliers.GetByID(ctx, id)
	if err != nil {
		return notFound(err, suppliers.ErrSupplierNotFound)
	}
	if err := guard(caller, current.OwnerID); err != nil {
		return err
	}
	return notFound(s.store.Suppliers.Delete(ctx, id), suppliers.ErrSupplierNotFound)
}
