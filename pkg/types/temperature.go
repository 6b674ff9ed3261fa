package types

// ZeroCelsius is 0 °C expressed in Kelvin.
const ZeroCelsius = 273.15

// Celsius is a temperature in degrees Celsius.
type Celsius float64

// Kelvin is a temperature in Kelvin.
type Kelvin float64

// Kelvin converts c to Kelvin.
func (c Celsius) Kelvin() Kelvin { return Kelvin(float64(c) + ZeroCelsius) }

// Celsius converts k to degrees Celsius.
func (k Kelvin) Celsius() Celsius { return Celsius(float64(k) - ZeroCelsius) }
