package planning

// Item is a product or material. Only the supplier and distribution
// records that may point at a resource are modeled here.
type Item struct {
	Name          string
	suppliers     []*ItemSupplier
	distributions []*ItemDistribution
}

// ItemSupplier describes purchasing an item from a supplier. The purchase
// may consume capacity of a resource. The resource does not track the
// record, so the reference is cleared when the resource is destroyed.
type ItemSupplier struct {
	Item             *Item
	Supplier         string
	ResourceQuantity float64
	resource         *Resource
}

// ItemDistribution describes shipping an item from an origin location.
// Like ItemSupplier it holds an untracked reference to a resource.
type ItemDistribution struct {
	Item             *Item
	Origin           *Location
	ResourceQuantity float64
	resource         *Resource
}

// AddSupplier adds a supplier record to the item.
func (it *Item) AddSupplier(supplier string, r *Resource, quantity float64) *ItemSupplier {
	s := &ItemSupplier{Item: it, Supplier: supplier, ResourceQuantity: quantity, resource: r}
	it.suppliers = append(it.suppliers, s)
	return s
}

// AddDistribution adds a distribution record to the item.
func (it *Item) AddDistribution(origin *Location, r *Resource, quantity float64) *ItemDistribution {
	d := &ItemDistribution{Item: it, Origin: origin, ResourceQuantity: quantity, resource: r}
	it.distributions = append(it.distributions, d)
	return d
}

func (it *Item) Suppliers() []*ItemSupplier         { return it.suppliers }
func (it *Item) Distributions() []*ItemDistribution { return it.distributions }

func (s *ItemSupplier) Resource() *Resource     { return s.resource }
func (s *ItemSupplier) SetResource(r *Resource) { s.resource = r }

func (d *ItemDistribution) Resource() *Resource     { return d.resource }
func (d *ItemDistribution) SetResource(r *Resource) { d.resource = r }
