package invoice

// Fields is an insertion-ordered column map. Setting an existing key keeps its position.
type Fields struct {
	keys []string
	vals map[string]Value
}

func NewFields() *Fields {
	return &Fields{vals: map[string]Value{}}
}

func (f *Fields) Get(key string) (Value, bool) {
	v, ok := f.vals[key]
	return v, ok
}

// Value returns the value for key, or an empty text value.
func (f *Fields) Value(key string) Value {
	return f.vals[key]
}

func (f *Fields) Has(key string) bool {
	_, ok := f.vals[key]
	return ok
}

func (f *Fields) Set(key string, v Value) {
	if _, ok := f.vals[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.vals[key] = v
}

func (f *Fields) Delete(key string) {
	if _, ok := f.vals[key]; !ok {
		return
	}
	delete(f.vals, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f *Fields) Len() int { return len(f.keys) }

func (f *Fields) Clone() *Fields {
	c := &Fields{keys: make([]string, len(f.keys)), vals: make(map[string]Value, len(f.vals))}
	copy(c.keys, f.keys)
	for k, v := range f.vals {
		c.vals[k] = v
	}
	return c
}

// Merge copies every field of other into f, in other's order.
func (f *Fields) Merge(other *Fields) {
	for _, k := range other.keys {
		f.Set(k, other.vals[k])
	}
}

// FirstTruthy returns the first truthy value among keys, or an empty value.
func (f *Fields) FirstTruthy(keys ...string) Value {
	for _, k := range keys {
		if v, ok := f.vals[k]; ok && v.Truthy() {
			return v
		}
	}
	return Value{}
}
