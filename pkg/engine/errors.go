package engine

import "errors"

var (
	// ErrRouteNotFound indica que nenhum endpoint corresponde a método + path.
	ErrRouteNotFound = errors.New("nenhum endpoint corresponde à requisição")

	// ErrNoEligibleRule indica que nenhuma condição foi satisfeita e o
	// endpoint não possui resposta default.
	ErrNoEligibleRule = errors.New("nenhuma regra elegível e nenhuma resposta default")
)

func IsRouteNotFound(err error) bool {
	return errors.Is(err, ErrRouteNotFound)
}

func IsNoEligibleRule(err error) bool {
	return errors.Is(err, ErrNoEligibleRule)
}
